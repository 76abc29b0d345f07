package quartercar

import (
	"github.com/sirupsen/logrus"

	"github.com/roadsense/iri-engine/internal/models"
)

// Шаг дистанционной сетки, на которой работает квартер-кар модель, метры
const distanceGridStep = 0.25

// Минимум точек для устойчивой нулевой фазы и двойного интегрирования
const minFilterSamples = 8

// Output результат фильтрующей стадии для одной под-трассы
type Output struct {
	// Отклик модели на равномерной дистанционной сетке, вход сегментатора
	Points []models.ProfilePoint

	// Полосовое вертикальное ускорение во времени, сохраняется для графиков
	Filtered []models.FilteredPoint

	TotalDistanceM float64
}

// Filter преобразует вертикальное ускорение в сигнал ровности шкалы IRI:
// полосовая фильтрация, двойное интегрирование в синтетический профиль
// высот и прогон через квартер-кар модель на эталонной скорости.
type Filter struct {
	cfg    models.FilterConfig
	logger *logrus.Logger
}

// NewFilter создает новый квартер-кар фильтр
func NewFilter(cfg models.FilterConfig, logger *logrus.Logger) *Filter {
	return &Filter{cfg: cfg, logger: logger}
}

// Process обрабатывает одну равномерную под-трассу с приписанной дистанцией
func (f *Filter) Process(tagged []models.DistanceTaggedSample, dt float64) (*Output, error) {
	n := len(tagged)
	if n < minFilterSamples {
		return nil, &models.InsufficientSamplesError{
			Valid:  n,
			Reason: "sub-trace too short for zero-phase filtering",
		}
	}

	accel := make([]float64, n)
	for i := range tagged {
		accel[i] = tagged[i].Axis(f.cfg.VerticalChannel)
	}

	fs := 1 / dt
	nyquist := fs / 2

	// Срез зажимается под Найквист, как и в низкочастотных экспортах с
	// частотой ниже номинальной
	cutoff := f.cfg.CutoffFreqHz
	if cutoff >= nyquist {
		cutoff = nyquist * 0.9
		f.logger.WithFields(logrus.Fields{
			"requested_hz": f.cfg.CutoffFreqHz,
			"clamped_hz":   cutoff,
		}).Warn("Cutoff frequency clamped below Nyquist")
	}
	highpass := f.cfg.HighpassFreqHz
	if highpass >= cutoff {
		highpass = cutoff / 100
	}

	// ВЧ убирает гравитацию и медленный наклон корпуса, НЧ (4-й порядок,
	// каскад двух секций) давит шум сенсора и резонанс крепления
	band := newHighpass(highpass, fs, butterworthQ).zeroPhase(accel)
	band = newLowpass(cutoff, fs, butterworth4Q[0]).zeroPhase(band)
	band = newLowpass(cutoff, fs, butterworth4Q[1]).zeroPhase(band)

	filtered := make([]models.FilteredPoint, n)
	for i := range band {
		filtered[i] = models.FilteredPoint{
			Time:          tagged[i].Time,
			VerticalAccel: band[i],
		}
	}

	// Двойное интегрирование в синтетический профиль высот, после каждого
	// прохода снимается дрейф
	velocity := cumTrapz(band, dt)
	detrendLinear(velocity)
	displacement := cumTrapz(velocity, dt)
	detrendLinear(displacement)

	total := tagged[n-1].DistanceM
	if total < 2*distanceGridStep {
		return nil, &models.InsufficientSamplesError{
			Valid:  n,
			Reason: "trip too short to grid by distance",
		}
	}

	xs := distanceGrid(total)
	profile := make([]float64, len(xs))
	points := make([]models.ProfilePoint, len(xs))

	j := 0
	for i, x := range xs {
		for j < n-2 && tagged[j+1].DistanceM <= x {
			j++
		}
		a, b := tagged[j], tagged[j+1]
		frac := 0.0
		if b.DistanceM > a.DistanceM {
			frac = (x - a.DistanceM) / (b.DistanceM - a.DistanceM)
		}
		if frac < 0 {
			frac = 0
		} else if frac > 1 {
			frac = 1
		}

		profile[i] = lerp(displacement[j], displacement[j+1], frac)
		points[i] = models.ProfilePoint{
			DistanceM: x,
			TimeS:     lerp(a.Time, b.Time, frac),
			SpeedMS:   lerp(a.SpeedMS, b.SpeedMS, frac),
			Accel:     lerp(band[j], band[j+1], frac),
			Lat:       nearestOptional(a.Latitude, b.Latitude, frac),
			Lon:       nearestOptional(a.Longitude, b.Longitude, frac),
		}
	}

	rates := simulateGoldenCar(profile, xs, f.cfg.ReferenceSpeedMS())
	for i := range points {
		points[i].Roughness = rates[i]
	}

	return &Output{
		Points:         points,
		Filtered:       filtered,
		TotalDistanceM: total,
	}, nil
}

// distanceGrid строит равномерную сетку 0..total с шагом distanceGridStep,
// последняя точка ставится точно в total
func distanceGrid(total float64) []float64 {
	count := int(total / distanceGridStep)
	xs := make([]float64, 0, count+2)
	for k := 0; k <= count; k++ {
		xs = append(xs, float64(k)*distanceGridStep)
	}
	if total-xs[len(xs)-1] > 1e-9 {
		xs = append(xs, total)
	}
	return xs
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

// nearestOptional выбирает координату ближайшего соседа, если оба фикса
// есть — ближайшего по доле интервала
func nearestOptional(a, b *float64, frac float64) *float64 {
	switch {
	case a != nil && b != nil:
		if frac > 0.5 {
			v := *b
			return &v
		}
		v := *a
		return &v
	case a != nil:
		v := *a
		return &v
	case b != nil:
		v := *b
		return &v
	default:
		return nil
	}
}
