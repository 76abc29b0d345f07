package distance

import (
	"github.com/roadsense/iri-engine/internal/models"
)

// Integrator строит дистанцию вдоль пути — пространственную ось для
// сегментации. Предпочтительный источник — показания скорости, запасной —
// расстояния между GPS фиксами по большому кругу.
type Integrator struct{}

// NewIntegrator создает новый интегратор дистанции
func NewIntegrator() *Integrator {
	return &Integrator{}
}

// Integrate приписывает каждой точке равномерной серии дистанцию от начала
// под-трассы. Дистанция монотонно неубывает: отрицательные и
// неправдоподобные мгновенные скорости зажимаются в ноль.
func (g *Integrator) Integrate(series *models.SensorSeries) ([]models.DistanceTaggedSample, error) {
	switch {
	case series.HasSpeed():
		return integrateBySpeed(series), nil
	case series.HasGPS():
		return integrateByFixes(series), nil
	default:
		return nil, &models.MissingSpatialReferenceError{}
	}
}

// integrateBySpeed накапливает дистанцию трапециевидным интегрированием
// скорости. Пропущенные показания держат последнее известное значение.
func integrateBySpeed(series *models.SensorSeries) []models.DistanceTaggedSample {
	tagged := make([]models.DistanceTaggedSample, len(series.Samples))

	prevSpeed := 0.0
	dist := 0.0
	for i := range series.Samples {
		s := series.Samples[i]
		speed := prevSpeed
		if s.Speed != nil {
			speed = clampSpeed(*s.Speed)
		}
		if i > 0 {
			dt := s.Time - series.Samples[i-1].Time
			dist += (prevSpeed + speed) / 2 * dt
		}
		tagged[i] = models.DistanceTaggedSample{
			RawSample: s,
			DistanceM: dist,
			SpeedMS:   speed,
		}
		prevSpeed = speed
	}

	return tagged
}

// integrateByFixes накапливает дистанцию по haversine расстояниям между
// соседними фиксами. Выведенная скорость нужна только для отчетности и в
// фильтр не попадает.
func integrateByFixes(series *models.SensorSeries) []models.DistanceTaggedSample {
	tagged := make([]models.DistanceTaggedSample, len(series.Samples))

	var lastFix *models.GeoPoint
	dist := 0.0
	for i := range series.Samples {
		s := series.Samples[i]
		speed := 0.0
		if s.HasFix() {
			fix := models.GeoPoint{Latitude: *s.Latitude, Longitude: *s.Longitude}
			if lastFix != nil {
				delta := lastFix.DistanceTo(fix)
				dist += delta
				if i > 0 {
					if dt := s.Time - series.Samples[i-1].Time; dt > 0 {
						speed = clampSpeed(delta / dt)
					}
				}
			}
			lastFix = &fix
		}
		tagged[i] = models.DistanceTaggedSample{
			RawSample: s,
			DistanceM: dist,
			SpeedMS:   speed,
		}
	}

	return tagged
}

func clampSpeed(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
