package quartercar

import "math"

// biquad секция БИХ фильтра второго порядка в транспонированной
// Direct-Form II. Коэффициенты нормированы так, что a0 == 1.
type biquad struct {
	b [3]float64
	a [3]float64
	w [2]float64
}

// Q добротности секций Баттерворта 4-го порядка
var butterworth4Q = [2]float64{0.5411961, 1.3065630}

// butterworthQ добротность одиночной секции Баттерворта 2-го порядка
const butterworthQ = math.Sqrt2 / 2

// newLowpass проектирует НЧ секцию билинейным преобразованием
func newLowpass(fc, fs, q float64) biquad {
	k := math.Tan(math.Pi * fc / fs)
	norm := 1 / (1 + k/q + k*k)
	b0 := k * k * norm
	return biquad{
		b: [3]float64{b0, 2 * b0, b0},
		a: [3]float64{1, 2 * (k*k - 1) * norm, (1 - k/q + k*k) * norm},
	}
}

// newHighpass проектирует ВЧ секцию билинейным преобразованием
func newHighpass(fc, fs, q float64) biquad {
	k := math.Tan(math.Pi * fc / fs)
	norm := 1 / (1 + k/q + k*k)
	return biquad{
		b: [3]float64{norm, -2 * norm, norm},
		a: [3]float64{1, 2 * (k*k - 1) * norm, (1 - k/q + k*k) * norm},
	}
}

// step пропускает один отсчет через секцию, обновляя состояние
func (f *biquad) step(x float64) float64 {
	y := f.w[0] + f.b[0]*x
	f.w[0] = f.w[1] - f.a[1]*y + f.b[1]*x
	f.w[1] = f.b[2]*x - f.a[2]*y
	return y
}

// zeroPhase фильтрует сигнал вперед и назад, убирая фазовое искажение,
// которое сместило бы оценку ровности. Начальные состояния и зеркальное
// продолжение краев по Густафссону:
//
//	Gustafsson, "Determining the initial states in forward-backward
//	filtering", IEEE Trans. Signal Processing 44(4), 1996.
func (f biquad) zeroPhase(signal []float64) []float64 {
	const pad = 6 // 3× порядок секции
	if len(signal) <= pad {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	kdc := (f.b[0] + f.b[1] + f.b[2]) / (1 + f.a[1] + f.a[2])
	var si [2]float64
	si[1] = f.b[2] - kdc*f.a[2]
	si[0] = si[1] + f.b[1] - kdc*f.a[1]

	v := make([]float64, 0, len(signal)+2*pad)

	// Прямой проход по зеркально продолженному сигналу
	f.w = [2]float64{
		si[0] * (signal[0]*2 - signal[pad]),
		si[1] * (signal[0]*2 - signal[pad]),
	}
	for i := pad; i >= 1; i-- {
		v = append(v, f.step(signal[0]*2-signal[i]))
	}
	for i := range signal {
		v = append(v, f.step(signal[i]))
	}
	last := len(signal) - 1
	for i := 1; i <= pad; i++ {
		v = append(v, f.step(signal[last]*2-signal[last-i]))
	}

	// Обратный проход
	f.w = [2]float64{
		si[0] * v[len(v)-1],
		si[1] * v[len(v)-1],
	}
	for i := len(v) - 1; i >= 0; i-- {
		v[i] = f.step(v[i])
	}

	return v[pad : len(signal)+pad]
}
