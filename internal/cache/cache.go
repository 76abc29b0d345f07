package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/roadsense/iri-engine/internal/config"
	"github.com/roadsense/iri-engine/internal/metrics"
	"github.com/roadsense/iri-engine/internal/models"
)

// ErrCacheMiss сигнал "результата нет" для read-through пути: не ошибка
// вычисления, а приглашение вызвать полный расчет
var ErrCacheMiss = errors.New("iri result not cached")

// Префикс ключей второго уровня в Redis
const redisKeyPrefix = "iri:result:"

// ComputeFunc выполняет полное вычисление IRI для отпечатка
type ComputeFunc func(ctx context.Context) (*models.IRIResult, error)

// ResultCache отображает отпечаток (содержимое источника, конфигурация) в
// вычисленный IRIResult. Гарантирует не более одного одновременного
// вычисления на отпечаток: конкурентные вызовы с одним отпечатком ждут
// общий результат, различные отпечатки друг друга не блокируют.
//
// Первый уровень — LRU с TTL в памяти, второй (опциональный) — Redis.
// Ошибки вычисления доставляются всем ожидающим и не кешируются.
type ResultCache struct {
	local    *lruStore
	redis    *redis.Client
	cfg      config.CacheConfig

	limiter *rate.Limiter
	group   singleflight.Group
	logger  *logrus.Logger
}

// New создает кеш результатов. Пустой RedisURL отключает второй уровень.
func New(cfg config.CacheConfig, logger *logrus.Logger) (*ResultCache, error) {
	c := &ResultCache{
		local:  newLRUStore(cfg.Capacity, cfg.TTL),
		cfg:    cfg,
		logger: logger,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.RedisPassword != "" {
			opts.Password = cfg.RedisPassword
		}
		opts.DB = cfg.RedisDB
		c.redis = redis.NewClient(opts)
	}

	if cfg.MaxComputeRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxComputeRate), cfg.ComputeBurst)
	}

	return c, nil
}

// GetOrCompute возвращает результат из кеша либо запускает вычисление.
// Отмена контекста отпускает только ожидающего: начатое вычисление
// доводится до конца и пополняет кеш для следующего запроса.
func (c *ResultCache) GetOrCompute(ctx context.Context, fingerprint string, compute ComputeFunc) (*models.IRIResult, error) {
	if result, ok := c.local.get(fingerprint); ok {
		metrics.CacheHits.WithLabelValues("local").Inc()
		return result, nil
	}
	if result := c.redisGet(ctx, fingerprint); result != nil {
		metrics.CacheHits.WithLabelValues("redis").Inc()
		c.local.set(fingerprint, result)
		return result, nil
	}
	metrics.CacheMisses.Inc()

	ch := c.group.DoChan(fingerprint, func() (interface{}, error) {
		// Вычисление живет дольше вызвавшего его контекста
		bg := context.Background()

		if c.limiter != nil {
			if err := c.limiter.Wait(bg); err != nil {
				return nil, err
			}
		}

		// Пока мы стояли в очереди, результат мог появиться
		if result, ok := c.local.get(fingerprint); ok {
			return result, nil
		}

		result, err := compute(bg)
		if err != nil {
			return nil, err
		}

		c.local.set(fingerprint, result)
		c.redisSet(bg, fingerprint, result)
		return result, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			metrics.SingleflightShared.Inc()
		}
		return res.Val.(*models.IRIResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetCached возвращает только закешированный результат, без вычисления
func (c *ResultCache) GetCached(ctx context.Context, fingerprint string) (*models.IRIResult, error) {
	if result, ok := c.local.get(fingerprint); ok {
		metrics.CacheHits.WithLabelValues("local").Inc()
		return result, nil
	}
	if result := c.redisGet(ctx, fingerprint); result != nil {
		metrics.CacheHits.WithLabelValues("redis").Inc()
		c.local.set(fingerprint, result)
		return result, nil
	}
	metrics.CacheMisses.Inc()
	return nil, fmt.Errorf("fingerprint %s: %w", fingerprint, ErrCacheMiss)
}

// Invalidate удаляет результат по отпечатку, например после удаления
// исходного файла вызывающей стороной
func (c *ResultCache) Invalidate(ctx context.Context, fingerprint string) {
	c.local.delete(fingerprint)
	if c.redis != nil {
		if err := c.redis.Del(ctx, redisKeyPrefix+fingerprint).Err(); err != nil {
			c.logger.WithError(err).WithField("fingerprint", fingerprint).
				Warn("Failed to invalidate redis cache entry")
		}
	}
}

// Clear очищает локальный уровень кеша
func (c *ResultCache) Clear() {
	c.local.clear()
}

// Stats возвращает статистику локального уровня
func (c *ResultCache) Stats() (size int, hits, misses uint64, hitRate float64) {
	hits, misses, hitRate = c.local.stats()
	return c.local.size(), hits, misses, hitRate
}

// Close закрывает соединение с Redis, если оно было открыто
func (c *ResultCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func (c *ResultCache) redisGet(ctx context.Context, fingerprint string) *models.IRIResult {
	if c.redis == nil {
		return nil
	}

	data, err := c.redis.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warn("Redis cache read failed")
		}
		return nil
	}

	var result models.IRIResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WithError(err).WithField("fingerprint", fingerprint).
			Warn("Corrupted redis cache entry, dropping")
		c.redis.Del(ctx, redisKeyPrefix+fingerprint)
		return nil
	}
	return &result
}

func (c *ResultCache) redisSet(ctx context.Context, fingerprint string, result *models.IRIResult) {
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.WithError(err).Error("Failed to serialize result for redis cache")
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+fingerprint, data, c.cfg.RedisTTL).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis cache write failed")
	}
}
