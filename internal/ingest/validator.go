package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roadsense/iri-engine/internal/metrics"
	"github.com/roadsense/iri-engine/internal/models"
)

// Обязательные колонки экспорта сенсор-логгера
var requiredColumns = []string{"time", "ax", "ay", "az"}

// Опциональные колонки, сохраняемые при наличии
var optionalColumns = []string{"latitude", "longitude", "altitude", "speed", "wx", "wy", "wz"}

// Validator проверяет схему, диапазоны значений и собирает типизированную
// серию из декодированных табличных строк
type Validator struct {
	cfg    models.FilterConfig
	logger *logrus.Logger
}

// NewValidator создает новый валидатор
func NewValidator(cfg models.FilterConfig, logger *logrus.Logger) *Validator {
	return &Validator{cfg: cfg, logger: logger}
}

// Parse собирает SensorSeries из заголовка и строк. Испорченные ячейки
// опциональных колонок становятся "отсутствующими", испорченные обязательные
// ячейки приводят к отбрасыванию строки с предупреждением. Время
// нормализуется к секундам от начала записи.
func (v *Validator) Parse(header []string, rows [][]string) (*models.SensorSeries, models.Warnings, error) {
	var warnings models.Warnings

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		metrics.ValidationRejects.WithLabelValues("schema").Inc()
		return nil, warnings, &models.SchemaError{Missing: missing}
	}

	samples := make([]models.RawSample, 0, len(rows))
	accelReadings := 0
	outOfRange := 0

	for _, row := range rows {
		t, ok := parseTime(cell(row, cols["time"]))
		if !ok {
			warnings.DroppedRows++
			continue
		}

		ax, okX := parseFloat(cell(row, cols["ax"]))
		ay, okY := parseFloat(cell(row, cols["ay"]))
		az, okZ := parseFloat(cell(row, cols["az"]))
		if !okX || !okY || !okZ {
			warnings.DroppedRows++
			continue
		}

		for _, a := range [3]float64{ax, ay, az} {
			accelReadings++
			if math.Abs(a) > v.cfg.MaxPlausibleAccel {
				outOfRange++
			}
		}

		sample := models.RawSample{Time: t, Ax: ax, Ay: ay, Az: az}
		sample.Latitude = optionalCell(row, cols, "latitude")
		sample.Longitude = optionalCell(row, cols, "longitude")
		sample.Altitude = optionalCell(row, cols, "altitude")
		sample.Speed = optionalCell(row, cols, "speed")
		sample.Wx = optionalCell(row, cols, "wx")
		sample.Wy = optionalCell(row, cols, "wy")
		sample.Wz = optionalCell(row, cols, "wz")

		samples = append(samples, sample)
	}

	if len(samples) == 0 {
		metrics.ValidationRejects.WithLabelValues("empty").Inc()
		return nil, warnings, &models.EmptySeriesError{}
	}

	warnings.OutOfRange = outOfRange
	if accelReadings > 0 {
		fraction := float64(outOfRange) / float64(accelReadings)
		if fraction > v.cfg.MaxOutlierFraction {
			metrics.ValidationRejects.WithLabelValues("range").Inc()
			return nil, warnings, &models.RangeError{
				Outliers: outOfRange,
				Total:    accelReadings,
				Fraction: fraction,
				Limit:    v.cfg.MaxOutlierFraction,
			}
		}
	}

	metrics.RowsDropped.Add(float64(warnings.DroppedRows))
	if warnings.DroppedRows > 0 {
		v.logger.WithFields(logrus.Fields{
			"dropped_rows": warnings.DroppedRows,
			"kept_rows":    len(samples),
		}).Warn("Dropped rows with corrupted mandatory cells")
	}

	normalizeTime(samples)

	return &models.SensorSeries{Samples: samples}, warnings, nil
}

// normalizeTime сдвигает шкалу времени так, чтобы запись начиналась с нуля
func normalizeTime(samples []models.RawSample) {
	t0 := math.Inf(1)
	for i := range samples {
		if samples[i].Time < t0 {
			t0 = samples[i].Time
		}
	}
	for i := range samples {
		samples[i].Time -= t0
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func optionalCell(row []string, cols map[string]int, name string) *float64 {
	idx, ok := cols[name]
	if !ok {
		return nil
	}
	value, ok := parseFloat(cell(row, idx))
	if !ok {
		return nil
	}
	return &value
}

// parseFloat разбирает числовую ячейку, пустые и нечисловые значения
// считаются отсутствующими
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Поддерживаемые текстовые форматы времени экспорта
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTime интерпретирует ячейку времени как Unix секунды либо как
// ISO-8601 метку
func parseTime(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if value, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		return value, true
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return float64(ts.UnixNano()) / 1e9, true
		}
	}
	return 0, false
}
