package models

// RawSample представляет одну строку экспорта мобильного сенсор-логгера.
// Обязательны только Time и оси акселерометра, остальные поля опциональны
// и могут отсутствовать в отдельных строках.
type RawSample struct {
	Time float64 `json:"time"` // секунды от начала записи
	Ax   float64 `json:"ax"`   // м/с²
	Ay   float64 `json:"ay"`   // м/с²
	Az   float64 `json:"az"`   // м/с²

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"` // м/с

	// Гироскоп, сохраняется как есть для потребителей выше по стеку
	Wx *float64 `json:"wx,omitempty"`
	Wy *float64 `json:"wy,omitempty"`
	Wz *float64 `json:"wz,omitempty"`
}

// HasFix проверяет наличие GPS координат у точки
func (s *RawSample) HasFix() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Axis возвращает значение выбранной оси акселерометра
func (s *RawSample) Axis(channel string) float64 {
	switch channel {
	case "ax":
		return s.Ax
	case "ay":
		return s.Ay
	default:
		return s.Az
	}
}

// SensorSeries упорядоченная последовательность точек одной записи.
// После ресемплинга время строго возрастает с равномерным шагом Dt.
type SensorSeries struct {
	Samples []RawSample `json:"samples"`
	Dt      float64     `json:"dt,omitempty"` // секунды, 0 до ресемплинга
}

// Len возвращает количество точек
func (s *SensorSeries) Len() int {
	return len(s.Samples)
}

// Duration возвращает длительность серии в секундах
func (s *SensorSeries) Duration() float64 {
	if len(s.Samples) < 2 {
		return 0
	}
	return s.Samples[len(s.Samples)-1].Time - s.Samples[0].Time
}

// HasSpeed проверяет, есть ли хотя бы одно показание скорости
func (s *SensorSeries) HasSpeed() bool {
	for i := range s.Samples {
		if s.Samples[i].Speed != nil {
			return true
		}
	}
	return false
}

// HasGPS проверяет, есть ли хотя бы один GPS фикс
func (s *SensorSeries) HasGPS() bool {
	for i := range s.Samples {
		if s.Samples[i].HasFix() {
			return true
		}
	}
	return false
}

// DistanceTaggedSample точка серии с приписанной дистанцией вдоль пути.
// DistanceM монотонно неубывает и начинается с нуля. SpeedMS — эффективная
// скорость: измеренная, либо выведенная из GPS для отчётности.
type DistanceTaggedSample struct {
	RawSample
	DistanceM float64 `json:"distance_m"`
	SpeedMS   float64 `json:"speed_ms"`
}
