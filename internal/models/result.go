package models

// Классификация сегмента по значению IRI, пороги и цвета совместимы со
// слоем отображения карты
const (
	ConditionGood = "good"
	ConditionFair = "fair"
	ConditionPoor = "poor"
	ConditionBad  = "bad"
)

// ClassifyIRI возвращает класс состояния покрытия и цвет для карты
func ClassifyIRI(iri float64) (condition, color string) {
	switch {
	case iri <= 3:
		return ConditionGood, "#16a34a"
	case iri <= 5:
		return ConditionFair, "#facc15"
	case iri <= 7:
		return ConditionPoor, "#f97316"
	default:
		return ConditionBad, "#dc2626"
	}
}

// Segment результат по одному участку дороги фиксированной длины.
// Последний сегмент поездки может быть короче SegmentLengthM.
type Segment struct {
	SegmentID     int     `json:"segment_id"`
	DistanceStart float64 `json:"distance_start"` // м
	DistanceEnd   float64 `json:"distance_end"`   // м
	SegmentLength float64 `json:"segment_length"` // м
	IRIValue      float64 `json:"iri_value"`      // м/км
	MeanSpeed     float64 `json:"mean_speed"`     // м/с
	RMSAccel      float64 `json:"rms_accel"`      // м/с²

	StartLat *float64 `json:"start_lat,omitempty"`
	StartLon *float64 `json:"start_lon,omitempty"`
	EndLat   *float64 `json:"end_lat,omitempty"`
	EndLon   *float64 `json:"end_lon,omitempty"`

	// Geohash начала сегмента для пространственной индексации потребителем
	Geohash string `json:"geohash,omitempty"`

	Condition string `json:"condition"`
	Color     string `json:"color"`
}

// RawPoint точка сырой трассы для графиков
type RawPoint struct {
	Time  float64 `json:"time"`
	Ax    float64 `json:"ax"`
	Ay    float64 `json:"ay"`
	Az    float64 `json:"az"`
	Speed float64 `json:"speed"`
}

// FilteredPoint точка отфильтрованной вертикальной трассы для графиков
type FilteredPoint struct {
	Time          float64 `json:"time"`
	VerticalAccel float64 `json:"vertical_accel"`
}

// Warnings нефатальные замечания, сопровождающие успешный результат
type Warnings struct {
	DroppedRows int `json:"dropped_rows"` // строки с испорченными обязательными ячейками
	GapSplits   int `json:"gap_splits"`   // обрывы записи, разрезавшие серию
	OutOfRange  int `json:"out_of_range"` // показания вне физического диапазона
}

// IRIResult итог вычисления. Структура и единицы полей — контракт со слоем
// представления, менять их без версионирования нельзя.
type IRIResult struct {
	Segments       []Segment       `json:"segments"`
	RawData        []RawPoint      `json:"raw_data"`
	FilteredData   []FilteredPoint `json:"filtered_data"`
	TotalSegments  int             `json:"total_segments"`
	SamplingRateHz float64         `json:"sampling_rate"`
	TotalDistanceM float64         `json:"total_distance_m"`
	Warnings       Warnings        `json:"warnings"`
}
