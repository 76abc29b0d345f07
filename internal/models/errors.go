package models

import (
	"fmt"
	"strings"
)

// SchemaError возвращается, когда во входных данных отсутствуют обязательные колонки
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// EmptySeriesError возвращается, когда после разбора заголовка не осталось ни одной строки данных
type EmptySeriesError struct{}

func (e *EmptySeriesError) Error() string {
	return "no data rows after header"
}

// RangeError возвращается, когда доля физически неправдоподобных показаний превышает порог
type RangeError struct {
	Outliers int
	Total    int
	Fraction float64
	Limit    float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("implausible acceleration readings: %d of %d (%.1f%% > %.1f%% allowed)",
		e.Outliers, e.Total, e.Fraction*100, e.Limit*100)
}

// InsufficientSamplesError возвращается, когда после очистки осталось слишком мало точек
type InsufficientSamplesError struct {
	Valid  int
	Reason string
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples: %d valid (%s)", e.Valid, e.Reason)
}

// MissingSpatialReferenceError возвращается, когда нет ни скорости, ни GPS координат.
// Без пространственной оси серию невозможно разбить на сегменты.
type MissingSpatialReferenceError struct{}

func (e *MissingSpatialReferenceError) Error() string {
	return "no speed and no GPS fixes: distance axis cannot be derived"
}
