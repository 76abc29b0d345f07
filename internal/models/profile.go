package models

// ProfilePoint точка отклика квартер-кар модели на равномерной
// дистанционной сетке. Это вход сегментатора: Roughness — модуль скорости
// хода подвески золотого автомобиля, Accel — полосовое вертикальное
// ускорение, пересчитанное на ту же сетку для диагностики.
type ProfilePoint struct {
	DistanceM float64 `json:"distance_m"`
	TimeS     float64 `json:"time_s"`
	SpeedMS   float64 `json:"speed_ms"`
	Accel     float64 `json:"accel"`     // м/с²
	Roughness float64 `json:"roughness"` // м/с

	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}
