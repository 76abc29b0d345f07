package models

import (
	"fmt"
)

// FilterConfig параметры вычисления IRI. Конфигурация неизменяема после
// старта вычисления; каноническая форма участвует в отпечатке кеша.
type FilterConfig struct {
	// Длина сегмента дороги, метры
	SegmentLengthM float64 `json:"segment_length_m" yaml:"segment_length_m"`

	// Частота среза НЧ фильтра, Гц
	CutoffFreqHz float64 `json:"cutoff_freq_hz" yaml:"cutoff_freq_hz"`

	// Эталонная скорость квартер-кар модели, км/ч
	ReferenceSpeedKmh float64 `json:"reference_speed_kmh" yaml:"reference_speed_kmh"`

	// Частота среза ВЧ фильтра для удаления гравитационной составляющей, Гц
	HighpassFreqHz float64 `json:"highpass_freq_hz" yaml:"highpass_freq_hz"`

	// Канал вертикального ускорения: "ax", "ay" или "az"
	VerticalChannel string `json:"vertical_channel" yaml:"vertical_channel"`

	// Разрыв больше GapFactor×dt считается обрывом записи
	GapFactor float64 `json:"gap_factor" yaml:"gap_factor"`

	// Допустимая доля показаний вне физического диапазона
	MaxOutlierFraction float64 `json:"max_outlier_fraction" yaml:"max_outlier_fraction"`

	// Порог правдоподобности показаний акселерометра, м/с²
	MaxPlausibleAccel float64 `json:"max_plausible_accel" yaml:"max_plausible_accel"`
}

// DefaultFilterConfig возвращает конфигурацию по умолчанию
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		SegmentLengthM:     100,
		CutoffFreqHz:       10.0,
		ReferenceSpeedKmh:  80,
		HighpassFreqHz:     0.1,
		VerticalChannel:    "az",
		GapFactor:          8,
		MaxOutlierFraction: 0.05,
		MaxPlausibleAccel:  50,
	}
}

// Validate проверяет корректность конфигурации
func (c FilterConfig) Validate() error {
	if c.SegmentLengthM <= 0 {
		return fmt.Errorf("segment_length_m must be positive, got %f", c.SegmentLengthM)
	}
	if c.CutoffFreqHz <= 0 {
		return fmt.Errorf("cutoff_freq_hz must be positive, got %f", c.CutoffFreqHz)
	}
	if c.ReferenceSpeedKmh <= 0 {
		return fmt.Errorf("reference_speed_kmh must be positive, got %f", c.ReferenceSpeedKmh)
	}
	if c.HighpassFreqHz <= 0 || c.HighpassFreqHz >= c.CutoffFreqHz {
		return fmt.Errorf("highpass_freq_hz must be in (0, cutoff), got %f", c.HighpassFreqHz)
	}
	switch c.VerticalChannel {
	case "ax", "ay", "az":
	default:
		return fmt.Errorf("vertical_channel must be ax, ay or az, got %q", c.VerticalChannel)
	}
	if c.GapFactor <= 1 {
		return fmt.Errorf("gap_factor must be greater than 1, got %f", c.GapFactor)
	}
	if c.MaxOutlierFraction < 0 || c.MaxOutlierFraction > 1 {
		return fmt.Errorf("max_outlier_fraction must be in [0, 1], got %f", c.MaxOutlierFraction)
	}
	if c.MaxPlausibleAccel <= 0 {
		return fmt.Errorf("max_plausible_accel must be positive, got %f", c.MaxPlausibleAccel)
	}
	return nil
}

// ReferenceSpeedMS возвращает эталонную скорость в м/с
func (c FilterConfig) ReferenceSpeedMS() float64 {
	return c.ReferenceSpeedKmh / 3.6
}

// Canonical возвращает детерминированное строковое представление конфигурации
// для включения в отпечаток кеша
func (c FilterConfig) Canonical() string {
	return fmt.Sprintf("seg=%.6f;lp=%.6f;ref=%.6f;hp=%.6f;ch=%s;gap=%.6f;out=%.6f;acc=%.6f",
		c.SegmentLengthM, c.CutoffFreqHz, c.ReferenceSpeedKmh, c.HighpassFreqHz,
		c.VerticalChannel, c.GapFactor, c.MaxOutlierFraction, c.MaxPlausibleAccel)
}
