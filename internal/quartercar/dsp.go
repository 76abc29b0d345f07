package quartercar

// cumTrapz накапливает трапециевидный интеграл сигнала с шагом dt
func cumTrapz(y []float64, dt float64) []float64 {
	out := make([]float64, len(y))
	if len(y) == 0 {
		return out
	}
	for i := 1; i < len(y); i++ {
		out[i] = out[i-1] + (y[i-1]+y[i])*dt/2
	}
	return out
}

// detrendLinear вычитает из сигнала линию наименьших квадратов. Каждое
// интегрирование накапливает дрейф, без детрендинга он попал бы в профиль
// как ложный уклон.
func detrendLinear(y []float64) {
	n := len(y)
	if n < 2 {
		return
	}

	meanX := float64(n-1) / 2
	meanY := 0.0
	for _, v := range y {
		meanY += v
	}
	meanY /= float64(n)

	num := 0.0
	den := 0.0
	for i, v := range y {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}

	slope := 0.0
	if den > 0 {
		slope = num / den
	}
	intercept := meanY - slope*meanX

	for i := range y {
		y[i] -= intercept + slope*float64(i)
	}
}
