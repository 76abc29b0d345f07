package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roadsense/iri-engine/internal/cache"
	"github.com/roadsense/iri-engine/internal/distance"
	"github.com/roadsense/iri-engine/internal/ingest"
	"github.com/roadsense/iri-engine/internal/metrics"
	"github.com/roadsense/iri-engine/internal/models"
	"github.com/roadsense/iri-engine/internal/quartercar"
	"github.com/roadsense/iri-engine/internal/resample"
	"github.com/roadsense/iri-engine/internal/segment"
	"github.com/roadsense/iri-engine/pkg/utils"
)

// Предел точек в трассах для графиков, как в историческом API
const maxChartPoints = 2000

// Минимум строк для проверки формата файла
const minFormatRows = 10

// Engine связывает стадии конвейера: валидация → ресемплинг → дистанция →
// квартер-кар фильтр → сегментация. Все стадии чистые, единственное
// разделяемое состояние — кеш результатов.
type Engine struct {
	cache  *cache.ResultCache
	logger *logrus.Logger
}

// NewEngine создает движок вычисления IRI. Кеш может быть nil, тогда
// каждый вызов считает заново.
func NewEngine(resultCache *cache.ResultCache, logger *logrus.Logger) *Engine {
	return &Engine{cache: resultCache, logger: logger}
}

// Fingerprint возвращает ключ кеша для содержимого источника и конфигурации
func (e *Engine) Fingerprint(content []byte, cfg models.FilterConfig) string {
	return utils.Fingerprint(content, cfg.Canonical())
}

// Compute выполняет полное вычисление IRI для декодированной таблицы.
// Частичный результат не возвращается никогда: любая ошибка стадий
// терминальна для вычисления.
func (e *Engine) Compute(ctx context.Context, header []string, rows [][]string, cfg models.FilterConfig) (*models.IRIResult, error) {
	started := time.Now()

	result, err := e.compute(ctx, header, rows, cfg)
	if err != nil {
		metrics.ComputationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	elapsed := time.Since(started)
	metrics.ComputationsTotal.WithLabelValues("success").Inc()
	metrics.ComputationDuration.Observe(elapsed.Seconds())
	metrics.SegmentsProduced.Add(float64(result.TotalSegments))

	e.logger.WithFields(logrus.Fields{
		"segments":      result.TotalSegments,
		"distance_m":    result.TotalDistanceM,
		"sampling_rate": result.SamplingRateHz,
		"elapsed":       elapsed,
	}).Info("IRI computation finished")

	return result, nil
}

func (e *Engine) compute(ctx context.Context, header []string, rows [][]string, cfg models.FilterConfig) (*models.IRIResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("filter config: %w", err)
	}

	validator := ingest.NewValidator(cfg, e.logger)
	series, warnings, err := validator.Parse(header, rows)
	if err != nil {
		return nil, err
	}
	metrics.SamplesProcessed.Add(float64(series.Len()))

	resampled, err := resample.NewResampler(cfg, e.logger).Resample(series)
	if err != nil {
		return nil, err
	}
	warnings.GapSplits = resampled.GapSplits

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	integrator := distance.NewIntegrator()
	qcFilter := quartercar.NewFilter(cfg, e.logger)
	segmenter := segment.NewSegmenter(cfg)

	result := &models.IRIResult{
		SamplingRateHz: 1 / resampled.Dt,
		Warnings:       warnings,
	}

	distanceOffset := 0.0
	for i := range resampled.Traces {
		trace := &resampled.Traces[i]

		tagged, err := integrator.Integrate(trace)
		if err != nil {
			return nil, err
		}

		out, err := qcFilter.Process(tagged, resampled.Dt)
		if err != nil {
			// Короткий обрывок между разрывами записи не хоронит всю
			// поездку, если остальные под-трассы пригодны
			var insufficient *models.InsufficientSamplesError
			if errors.As(err, &insufficient) && len(resampled.Traces) > 1 {
				e.logger.WithField("trace", i).WithError(err).
					Warn("Skipping unusable sub-trace")
				continue
			}
			return nil, err
		}

		for _, seg := range segmenter.Split(out.Points) {
			seg.SegmentID = len(result.Segments)
			seg.DistanceStart += distanceOffset
			seg.DistanceEnd += distanceOffset
			result.Segments = append(result.Segments, seg)
		}
		distanceOffset += out.TotalDistanceM

		for j := range tagged {
			result.RawData = append(result.RawData, models.RawPoint{
				Time:  tagged[j].Time,
				Ax:    tagged[j].Ax,
				Ay:    tagged[j].Ay,
				Az:    tagged[j].Az,
				Speed: tagged[j].SpeedMS,
			})
		}
		result.FilteredData = append(result.FilteredData, out.Filtered...)
	}

	if len(result.Segments) == 0 {
		return nil, &models.InsufficientSamplesError{
			Valid:  series.Len(),
			Reason: "no segmentable sub-trace",
		}
	}

	result.TotalSegments = len(result.Segments)
	result.TotalDistanceM = distanceOffset
	result.RawData = downsampleRaw(result.RawData)
	result.FilteredData = downsampleFiltered(result.FilteredData)

	return result, nil
}

// ComputeCached проводит вычисление через кеш: одинаковые отпечатки делят
// одно вычисление, готовые результаты возвращаются без пересчета
func (e *Engine) ComputeCached(ctx context.Context, fingerprint string, header []string, rows [][]string, cfg models.FilterConfig) (*models.IRIResult, error) {
	if e.cache == nil {
		return e.Compute(ctx, header, rows, cfg)
	}
	return e.cache.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (*models.IRIResult, error) {
		return e.Compute(ctx, header, rows, cfg)
	})
}

// Lookup возвращает только закешированный результат. Промах — это
// cache.ErrCacheMiss, вызывающая сторона решает, считать ли заново.
func (e *Engine) Lookup(ctx context.Context, fingerprint string) (*models.IRIResult, error) {
	if e.cache == nil {
		return nil, fmt.Errorf("fingerprint %s: %w", fingerprint, cache.ErrCacheMiss)
	}
	return e.cache.GetCached(ctx, fingerprint)
}

// Invalidate сбрасывает кеш по отпечатку, например после удаления источника
func (e *Engine) Invalidate(ctx context.Context, fingerprint string) {
	if e.cache != nil {
		e.cache.Invalidate(ctx, fingerprint)
	}
}

// ValidateFormat быстро проверяет пригодность таблицы для вычисления IRI,
// не запуская конвейер
func (e *Engine) ValidateFormat(header []string, rows [][]string) (bool, string, int) {
	cols := make(map[string]bool, len(header))
	for _, name := range header {
		cols[normalizeColumn(name)] = true
	}

	var missing []string
	for _, name := range []string{"time", "ax", "ay", "az"} {
		if !cols[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf("missing required columns: %v", missing), len(rows)
	}

	if len(rows) < minFormatRows {
		return false, fmt.Sprintf("insufficient data points (minimum %d required)", minFormatRows), len(rows)
	}

	return true, "file format is valid", len(rows)
}

func normalizeColumn(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == ' ' || r == '\t' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

// downsampleRaw прореживает сырую трассу до лимита точек графика
func downsampleRaw(points []models.RawPoint) []models.RawPoint {
	step := downsampleStep(len(points))
	if step == 1 {
		return points
	}
	out := make([]models.RawPoint, 0, maxChartPoints+1)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	return out
}

// downsampleFiltered прореживает отфильтрованную трассу до лимита точек
func downsampleFiltered(points []models.FilteredPoint) []models.FilteredPoint {
	step := downsampleStep(len(points))
	if step == 1 {
		return points
	}
	out := make([]models.FilteredPoint, 0, maxChartPoints+1)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	return out
}

func downsampleStep(total int) int {
	step := total / maxChartPoints
	if step < 1 {
		return 1
	}
	return step
}
