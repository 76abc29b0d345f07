package quartercar

import "math"

// Параметры золотого автомобиля (Sayers, UMTRI), нормированные на
// подрессоренную массу. Это каноническая калибровка шкалы IRI.
const (
	gcK1 = 653.0 // приведенная жесткость шины, 1/с²
	gcK2 = 63.3  // приведенная жесткость подвески, 1/с²
	gcC  = 6.0   // приведенное демпфирование, 1/с
	gcMu = 0.15  // отношение неподрессоренной массы к подрессоренной
)

// gcState состояние модели: перемещения и скорости подрессоренной и
// неподрессоренной масс
type gcState struct {
	zs, vs float64
	zu, vu float64
}

func gcDeriv(s gcState, road float64) gcState {
	as := -gcK2*(s.zs-s.zu) - gcC*(s.vs-s.vu)
	au := (gcK2*(s.zs-s.zu) + gcC*(s.vs-s.vu) - gcK1*(s.zu-road)) / gcMu
	return gcState{zs: s.vs, vs: as, zu: s.vu, vu: au}
}

func gcAdd(s gcState, d gcState, h float64) gcState {
	return gcState{
		zs: s.zs + d.zs*h,
		vs: s.vs + d.vs*h,
		zu: s.zu + d.zu*h,
		vu: s.vu + d.vu*h,
	}
}

// simulateGoldenCar прогоняет профиль высот, заданный на дистанционной
// сетке xs, через квартер-кар модель на скорости speedMS. Возвращает модуль
// скорости хода подвески |vs - vu| в каждой точке сетки — сигнал ровности,
// который потребляет сегментатор.
func simulateGoldenCar(profile, xs []float64, speedMS float64) []float64 {
	n := len(profile)
	rates := make([]float64, n)
	if n < 2 || speedMS <= 0 {
		return rates
	}

	// Инициализация по Sayers: начальный наклон профиля задает стартовые
	// скорости, перемещения совпадают с первой высотой
	initSlope := initialSlope(profile, xs)
	state := gcState{
		zs: profile[0],
		vs: initSlope * speedMS,
		zu: profile[0],
		vu: initSlope * speedMS,
	}
	rates[0] = math.Abs(state.vs - state.vu)

	for i := 1; i < n; i++ {
		dt := (xs[i] - xs[i-1]) / speedMS
		if dt <= 0 {
			rates[i] = rates[i-1]
			continue
		}

		y0 := profile[i-1]
		y1 := profile[i]
		yMid := (y0 + y1) / 2

		// Классический RK4 с линейным ходом высоты внутри шага
		k1 := gcDeriv(state, y0)
		k2 := gcDeriv(gcAdd(state, k1, dt/2), yMid)
		k3 := gcDeriv(gcAdd(state, k2, dt/2), yMid)
		k4 := gcDeriv(gcAdd(state, k3, dt), y1)

		state = gcState{
			zs: state.zs + dt/6*(k1.zs+2*k2.zs+2*k3.zs+k4.zs),
			vs: state.vs + dt/6*(k1.vs+2*k2.vs+2*k3.vs+k4.vs),
			zu: state.zu + dt/6*(k1.zu+2*k2.zu+2*k3.zu+k4.zu),
			vu: state.vu + dt/6*(k1.vu+2*k2.vu+2*k3.vu+k4.vu),
		}
		rates[i] = math.Abs(state.vs - state.vu)
	}

	return rates
}

// initialSlope оценивает уклон профиля на первых ~0.5 м пути
func initialSlope(profile, xs []float64) float64 {
	span := 0.5
	j := 1
	for j < len(xs)-1 && xs[j]-xs[0] < span {
		j++
	}
	if dx := xs[j] - xs[0]; dx > 0 {
		return (profile[j] - profile[0]) / dx
	}
	return 0
}
