package quartercar

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadsense/iri-engine/internal/models"
)

func newTestFilter() *Filter {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewFilter(models.DefaultFilterConfig(), logger)
}

// makeTagged строит под-трассу с постоянной скоростью и заданным вертикальным
// ускорением как функцией времени
func makeTagged(n int, dt, speed float64, az func(t float64) float64) []models.DistanceTaggedSample {
	tagged := make([]models.DistanceTaggedSample, n)
	for i := 0; i < n; i++ {
		t := float64(i) * dt
		tagged[i] = models.DistanceTaggedSample{
			RawSample: models.RawSample{Time: t, Az: az(t)},
			DistanceM: speed * t,
			SpeedMS:   speed,
		}
	}
	return tagged
}

func TestCumTrapz(t *testing.T) {
	// Интеграл константы — линейная функция
	y := []float64{2, 2, 2, 2, 2}
	out := cumTrapz(y, 0.5)

	require.Len(t, out, 5)
	assert.InDelta(t, 0.0, out[0], 1e-12)
	assert.InDelta(t, 1.0, out[1], 1e-12)
	assert.InDelta(t, 4.0, out[4], 1e-12)
}

func TestCumTrapz_Empty(t *testing.T) {
	assert.Empty(t, cumTrapz(nil, 0.01))
}

func TestDetrendLinear(t *testing.T) {
	// Чистая линия обнуляется полностью
	y := make([]float64, 100)
	for i := range y {
		y[i] = 3.0 + 0.5*float64(i)
	}
	detrendLinear(y)
	for _, v := range y {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
}

func TestDetrendLinear_PreservesOscillation(t *testing.T) {
	// Синус поверх линии: линия уходит, колебание остается
	n := 1000
	y := make([]float64, n)
	for i := range y {
		y[i] = 10.0 - 0.02*float64(i) + math.Sin(2*math.Pi*float64(i)/50)
	}
	detrendLinear(y)

	peak := 0.0
	for _, v := range y {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	assert.InDelta(t, 1.0, peak, 0.1)
}

func TestZeroPhase_ConstantSignal(t *testing.T) {
	// НЧ фильтр пропускает константу без изменений
	signal := make([]float64, 200)
	for i := range signal {
		signal[i] = 5.0
	}

	out := newLowpass(10, 100, butterworthQ).zeroPhase(signal)
	require.Len(t, out, 200)
	for _, v := range out {
		assert.InDelta(t, 5.0, v, 1e-6)
	}
}

func TestZeroPhase_HighpassRemovesDC(t *testing.T) {
	// ВЧ фильтр убирает постоянную составляющую, колебание в полосе остается
	n := 2000
	fs := 100.0
	signal := make([]float64, n)
	for i := range signal {
		t := float64(i) / fs
		signal[i] = 9.81 + math.Sin(2*math.Pi*2.0*t)
	}

	out := newHighpass(0.1, fs, butterworthQ).zeroPhase(signal)
	require.Len(t, out, n)

	// Середина сигнала, вдали от краевых эффектов
	for i := n / 4; i < 3*n/4; i++ {
		ts := float64(i) / fs
		assert.InDelta(t, math.Sin(2*math.Pi*2.0*ts), out[i], 0.05)
	}
}

func TestZeroPhase_NoPhaseShift(t *testing.T) {
	// Пики синуса в полосе пропускания остаются на своих местах
	n := 1000
	fs := 100.0
	freq := 1.0
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * freq * float64(i) / fs)
	}

	out := newLowpass(10, fs, butterworthQ).zeroPhase(signal)

	// Пик на четверти периода: i = fs/(4*freq) = 25
	peakIdx := 25 + 200 // берем пик подальше от края
	for i := peakIdx - 3; i <= peakIdx+3; i++ {
		assert.LessOrEqual(t, out[i], out[peakIdx]+1e-9)
	}
	assert.InDelta(t, 1.0, out[peakIdx], 0.02)
}

func TestZeroPhase_ShortSignalPassthrough(t *testing.T) {
	signal := []float64{1, 2, 3}
	out := newLowpass(10, 100, butterworthQ).zeroPhase(signal)
	assert.Equal(t, signal, out)
}

func TestFilter_FlatRoad(t *testing.T) {
	f := newTestFilter()

	// Идеально гладкая дорога: постоянная гравитация без вибрации
	tagged := makeTagged(2000, 0.01, 15.0, func(t float64) float64 { return 9.81 })

	out, err := f.Process(tagged, 0.01)
	require.NoError(t, err)
	require.NotEmpty(t, out.Points)
	assert.InDelta(t, 15.0*19.99, out.TotalDistanceM, 0.5)

	// Сигнал ровности пренебрежимо мал
	for _, p := range out.Points {
		assert.Less(t, p.Roughness, 0.01)
	}
}

func TestFilter_RoughRoadHigherResponse(t *testing.T) {
	f := newTestFilter()

	smooth := makeTagged(3000, 0.01, 15.0, func(t float64) float64 {
		return 9.81 + 0.1*math.Sin(2*math.Pi*2.0*t)
	})
	rough := makeTagged(3000, 0.01, 15.0, func(t float64) float64 {
		return 9.81 + 3.0*math.Sin(2*math.Pi*2.0*t)
	})

	smoothOut, err := f.Process(smooth, 0.01)
	require.NoError(t, err)
	roughOut, err := f.Process(rough, 0.01)
	require.NoError(t, err)

	meanRate := func(points []models.ProfilePoint) float64 {
		sum := 0.0
		for _, p := range points {
			sum += p.Roughness
		}
		return sum / float64(len(points))
	}

	assert.Greater(t, meanRate(roughOut.Points), 5*meanRate(smoothOut.Points))
}

func TestFilter_TooShort(t *testing.T) {
	f := newTestFilter()

	tests := []struct {
		name   string
		tagged []models.DistanceTaggedSample
	}{
		{
			name:   "Fewer samples than filter minimum",
			tagged: makeTagged(5, 0.01, 15.0, func(t float64) float64 { return 9.81 }),
		},
		{
			name: "Standing still",
			// Достаточно точек, но дистанция не набирается
			tagged: makeTagged(100, 0.01, 0.0, func(t float64) float64 { return 9.81 }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Process(tt.tagged, 0.01)

			var insufficientErr *models.InsufficientSamplesError
			assert.ErrorAs(t, err, &insufficientErr)
		})
	}
}

func TestFilter_DistanceGrid(t *testing.T) {
	xs := distanceGrid(1.0)
	require.Len(t, xs, 5)
	assert.InDelta(t, 0.0, xs[0], 1e-12)
	assert.InDelta(t, 1.0, xs[4], 1e-12)

	// Последняя точка ставится точно в конец пути
	xs = distanceGrid(1.1)
	assert.InDelta(t, 1.1, xs[len(xs)-1], 1e-12)
}

func TestFilter_FilteredTraceLength(t *testing.T) {
	f := newTestFilter()

	tagged := makeTagged(1000, 0.01, 15.0, func(t float64) float64 {
		return 9.81 + math.Sin(2*math.Pi*3.0*t)
	})

	out, err := f.Process(tagged, 0.01)
	require.NoError(t, err)

	// Отфильтрованная трасса сохраняет шкалу времени входа
	require.Len(t, out.Filtered, 1000)
	assert.InDelta(t, tagged[0].Time, out.Filtered[0].Time, 1e-12)
	assert.InDelta(t, tagged[999].Time, out.Filtered[999].Time, 1e-12)
}

func TestSimulateGoldenCar_FlatProfile(t *testing.T) {
	n := 400
	profile := make([]float64, n)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) * 0.25
	}

	rates := simulateGoldenCar(profile, xs, 22.2)
	for _, r := range rates {
		assert.InDelta(t, 0.0, r, 1e-12)
	}
}

func TestSimulateGoldenCar_SinusoidProfile(t *testing.T) {
	// Синусоидальный профиль возбуждает подвеску, отклик ограничен
	n := 400
	profile := make([]float64, n)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) * 0.25
		profile[i] = 0.01 * math.Sin(2*math.Pi*xs[i]/10)
	}

	rates := simulateGoldenCar(profile, xs, 22.2)

	peak := 0.0
	for _, r := range rates {
		assert.False(t, math.IsNaN(r))
		assert.False(t, math.IsInf(r, 0))
		if r > peak {
			peak = r
		}
	}
	assert.Greater(t, peak, 0.0)
	assert.Less(t, peak, 1.0)
}
