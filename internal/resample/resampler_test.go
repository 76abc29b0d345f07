package resample

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadsense/iri-engine/internal/models"
)

func newTestResampler() *Resampler {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewResampler(models.DefaultFilterConfig(), logger)
}

func makeSeries(times []float64) *models.SensorSeries {
	samples := make([]models.RawSample, len(times))
	for i, t := range times {
		samples[i] = models.RawSample{Time: t, Ax: 0.1, Ay: 0.2, Az: 9.81}
	}
	return &models.SensorSeries{Samples: samples}
}

func TestResampler_UniformGrid(t *testing.T) {
	r := newTestResampler()

	// Джиттер меток вокруг номинальных 100 Гц
	series := makeSeries([]float64{0.0, 0.011, 0.019, 0.031, 0.040, 0.051, 0.059, 0.070})

	result, err := r.Resample(series)
	require.NoError(t, err)
	require.Len(t, result.Traces, 1)
	assert.Equal(t, 0, result.GapSplits)
	assert.InDelta(t, 0.01, result.Dt, 0.002)

	trace := result.Traces[0]
	for i := 1; i < trace.Len(); i++ {
		step := trace.Samples[i].Time - trace.Samples[i-1].Time
		assert.InDelta(t, result.Dt, step, 1e-9)
	}
}

func TestResampler_DropDuplicateTimestamps(t *testing.T) {
	r := newTestResampler()

	series := makeSeries([]float64{0.00, 0.01, 0.01, 0.02, 0.02, 0.03})
	series.Samples[1].Az = 1.0 // первое вхождение дубликата побеждает
	series.Samples[2].Az = 2.0

	result, err := r.Resample(series)
	require.NoError(t, err)
	require.Len(t, result.Traces, 1)
	assert.InDelta(t, 0.01, result.Dt, 1e-9)

	trace := result.Traces[0]
	require.GreaterOrEqual(t, trace.Len(), 2)
	assert.InDelta(t, 1.0, trace.Samples[1].Az, 1e-9)
}

func TestResampler_UnsortedInput(t *testing.T) {
	r := newTestResampler()

	series := makeSeries([]float64{0.02, 0.00, 0.03, 0.01})

	result, err := r.Resample(series)
	require.NoError(t, err)
	require.Len(t, result.Traces, 1)
	assert.InDelta(t, 0.0, result.Traces[0].Samples[0].Time, 1e-9)
}

func TestResampler_SplitsOnGap(t *testing.T) {
	r := newTestResampler()

	// 100 Гц с обрывом записи в 1 секунду посередине
	times := make([]float64, 0, 40)
	for i := 0; i < 20; i++ {
		times = append(times, float64(i)*0.01)
	}
	for i := 0; i < 20; i++ {
		times = append(times, 1.2+float64(i)*0.01)
	}

	result, err := r.Resample(makeSeries(times))
	require.NoError(t, err)
	assert.Equal(t, 1, result.GapSplits)
	require.Len(t, result.Traces, 2)

	// Сетка каждой под-трассы начинается с ее собственного t0
	assert.InDelta(t, 0.0, result.Traces[0].Samples[0].Time, 1e-9)
	assert.InDelta(t, 1.2, result.Traces[1].Samples[0].Time, 1e-9)
}

func TestResampler_InsufficientSamples(t *testing.T) {
	r := newTestResampler()

	tests := []struct {
		name  string
		times []float64
	}{
		{"Single sample", []float64{0.0}},
		{"All duplicates", []float64{0.5, 0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resample(makeSeries(tt.times))

			var insufficientErr *models.InsufficientSamplesError
			assert.ErrorAs(t, err, &insufficientErr)
		})
	}
}

func TestResampler_OptionalChannels(t *testing.T) {
	r := newTestResampler()

	lat := func(v float64) *float64 { return &v }

	series := makeSeries([]float64{0.00, 0.01, 0.02, 0.03})
	series.Samples[0].Latitude = lat(55.750)
	series.Samples[1].Latitude = nil // пропуск фикса
	series.Samples[2].Latitude = lat(55.752)
	series.Samples[3].Latitude = lat(55.753)

	result, err := r.Resample(series)
	require.NoError(t, err)
	require.Len(t, result.Traces, 1)

	trace := result.Traces[0]
	require.NotNil(t, trace.Samples[0].Latitude)
	assert.InDelta(t, 55.750, *trace.Samples[0].Latitude, 1e-9)

	// Сосед без значения не обнуляет канал
	require.NotNil(t, trace.Samples[1].Latitude)
}
