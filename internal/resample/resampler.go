package resample

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/roadsense/iri-engine/internal/metrics"
	"github.com/roadsense/iri-engine/internal/models"
)

// Result результат ресемплинга: независимые под-трассы с общим равномерным
// шагом Dt. Под-трассы возникают на обрывах записи и обрабатываются дальше
// по конвейеру по отдельности, интерполяция через обрыв не выполняется.
type Result struct {
	Traces    []models.SensorSeries
	Dt        float64
	GapSplits int
}

// Resampler переводит нерегулярную серию на равномерную шкалу времени.
// Экспортированная частота номинально фиксирована, но интервалы плавают
// из-за джиттера планировщика ОС, а метки могут повторяться или слегка
// откатываться назад.
type Resampler struct {
	cfg    models.FilterConfig
	logger *logrus.Logger
}

// NewResampler создает новый ресемплер
func NewResampler(cfg models.FilterConfig, logger *logrus.Logger) *Resampler {
	return &Resampler{cfg: cfg, logger: logger}
}

// Resample сортирует серию по времени, убирает точные дубликаты меток,
// определяет медианный интервал и интерполирует каналы на сетку t0 + k·dt.
// Разрыв больше GapFactor×dt считается обрывом записи и разрезает серию.
func (r *Resampler) Resample(series *models.SensorSeries) (*Result, error) {
	samples := make([]models.RawSample, len(series.Samples))
	copy(samples, series.Samples)

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time < samples[j].Time
	})

	samples = dropDuplicates(samples)
	if len(samples) < 2 {
		return nil, &models.InsufficientSamplesError{
			Valid:  len(samples),
			Reason: "fewer than 2 samples after deduplication",
		}
	}

	dt := medianInterval(samples)
	if dt <= 0 {
		return nil, &models.InsufficientSamplesError{
			Valid:  len(samples),
			Reason: "non-positive median sampling interval",
		}
	}

	chunks := splitOnGaps(samples, r.cfg.GapFactor*dt)
	gapSplits := len(chunks) - 1
	if gapSplits > 0 {
		metrics.GapSplits.Add(float64(gapSplits))
		r.logger.WithFields(logrus.Fields{
			"gap_splits": gapSplits,
			"threshold":  r.cfg.GapFactor * dt,
		}).Warn("Logging interruptions detected, series split into sub-traces")
	}

	result := &Result{Dt: dt, GapSplits: gapSplits}
	for _, chunk := range chunks {
		if len(chunk) < 2 {
			continue
		}
		trace := regrid(chunk, dt)
		if trace.Len() >= 2 {
			result.Traces = append(result.Traces, trace)
		}
	}

	if len(result.Traces) == 0 {
		return nil, &models.InsufficientSamplesError{
			Valid:  len(samples),
			Reason: "no sub-trace long enough after gap splitting",
		}
	}

	return result, nil
}

// dropDuplicates убирает точные повторы меток времени, оставляя первое
// вхождение. Серия должна быть уже отсортирована.
func dropDuplicates(samples []models.RawSample) []models.RawSample {
	out := samples[:0]
	for i := range samples {
		if i > 0 && samples[i].Time == samples[i-1].Time {
			continue
		}
		out = append(out, samples[i])
	}
	return out
}

// medianInterval возвращает медиану интервалов между соседними точками
func medianInterval(samples []models.RawSample) float64 {
	diffs := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		diffs = append(diffs, samples[i].Time-samples[i-1].Time)
	}
	sort.Float64s(diffs)
	n := len(diffs)
	if n%2 == 1 {
		return diffs[n/2]
	}
	return (diffs[n/2-1] + diffs[n/2]) / 2
}

// splitOnGaps разрезает серию в местах, где интервал превышает порог
func splitOnGaps(samples []models.RawSample, threshold float64) [][]models.RawSample {
	var chunks [][]models.RawSample
	start := 0
	for i := 1; i < len(samples); i++ {
		if samples[i].Time-samples[i-1].Time > threshold {
			chunks = append(chunks, samples[start:i])
			start = i
		}
	}
	chunks = append(chunks, samples[start:])
	return chunks
}

// regrid интерполирует каналы непрерывного куска на равномерную сетку
func regrid(chunk []models.RawSample, dt float64) models.SensorSeries {
	t0 := chunk[0].Time
	tEnd := chunk[len(chunk)-1].Time
	count := int((tEnd-t0)/dt) + 1

	out := models.SensorSeries{
		Samples: make([]models.RawSample, 0, count),
		Dt:      dt,
	}

	j := 0
	for k := 0; k < count; k++ {
		t := t0 + float64(k)*dt
		for j < len(chunk)-2 && chunk[j+1].Time <= t {
			j++
		}
		a, b := chunk[j], chunk[j+1]
		frac := 0.0
		if b.Time > a.Time {
			frac = (t - a.Time) / (b.Time - a.Time)
		}
		if frac < 0 {
			frac = 0
		} else if frac > 1 {
			frac = 1
		}

		sample := models.RawSample{
			Time: t,
			Ax:   lerp(a.Ax, b.Ax, frac),
			Ay:   lerp(a.Ay, b.Ay, frac),
			Az:   lerp(a.Az, b.Az, frac),
		}
		sample.Latitude = lerpOptional(a.Latitude, b.Latitude, frac)
		sample.Longitude = lerpOptional(a.Longitude, b.Longitude, frac)
		sample.Altitude = lerpOptional(a.Altitude, b.Altitude, frac)
		sample.Speed = lerpOptional(a.Speed, b.Speed, frac)
		sample.Wx = lerpOptional(a.Wx, b.Wx, frac)
		sample.Wy = lerpOptional(a.Wy, b.Wy, frac)
		sample.Wz = lerpOptional(a.Wz, b.Wz, frac)

		out.Samples = append(out.Samples, sample)
	}

	return out
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

// lerpOptional интерполирует опциональный канал: при одном отсутствующем
// соседе берется имеющееся значение, при двух отсутствующих — ничего
func lerpOptional(a, b *float64, frac float64) *float64 {
	switch {
	case a != nil && b != nil:
		v := lerp(*a, *b, frac)
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
