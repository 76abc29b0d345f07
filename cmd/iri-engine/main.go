package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/roadsense/iri-engine/internal/cache"
	"github.com/roadsense/iri-engine/internal/config"
	"github.com/roadsense/iri-engine/internal/metrics"
	"github.com/roadsense/iri-engine/internal/models"
	"github.com/roadsense/iri-engine/internal/service"
	"github.com/roadsense/iri-engine/pkg/utils"
)

var (
	// Version будет установлен при сборке через ldflags
	Version = "dev"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "path to the exported sensor CSV")
		configPath = flag.String("config", "", "optional YAML config file")
		outputPath = flag.String("output", "-", "result JSON destination, - for stdout")
		cachedOnly = flag.Bool("cached-only", false, "fail on cache miss instead of computing")
		checkOnly  = flag.Bool("check", false, "validate file format and exit")
	)
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: iri-engine -input trip.csv [-config config.yaml] [-output result.json]")
		os.Exit(2)
	}

	// Загружаем конфигурацию
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем логирование
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.WithField("version", Version).Info("Starting IRI engine")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Метрики поднимаются на отдельном порту, как и в остальных наших
	// сервисах
	if cfg.Monitoring.MetricsEnabled {
		go func() {
			addr := ":" + cfg.Monitoring.MetricsPort
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.WithError(err).Warn("Metrics listener stopped")
			}
		}()
	}

	// Декодирование CSV — обязанность вызывающей стороны конвейера,
	// здесь CLI сам играет ее роль
	content, err := os.ReadFile(*inputPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read input file")
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse CSV")
	}
	if len(records) == 0 {
		logger.Fatal("Input file is empty")
	}
	header, rows := records[0], records[1:]

	resultCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize result cache")
	}
	defer resultCache.Close()

	engine := service.NewEngine(resultCache, logger)

	if *checkOnly {
		ok, message, count := engine.ValidateFormat(header, rows)
		logger.WithFields(map[string]interface{}{
			"valid": ok,
			"rows":  count,
		}).Info(message)
		if !ok {
			os.Exit(1)
		}
		return
	}

	fingerprint := engine.Fingerprint(content, cfg.Engine)
	logger.WithField("fingerprint", fingerprint).Debug("Input fingerprinted")

	var result *models.IRIResult
	if *cachedOnly {
		result, err = engine.Lookup(ctx, fingerprint)
	} else {
		result, err = engine.ComputeCached(ctx, fingerprint, header, rows, cfg.Engine)
	}
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			logger.WithField("fingerprint", fingerprint).Warn("Result not cached")
			os.Exit(3)
		}
		logger.WithError(err).Fatal("IRI computation failed")
	}

	out := os.Stdout
	if *outputPath != "-" {
		out, err = os.Create(*outputPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create output file")
		}
		defer out.Close()
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.WithError(err).Fatal("Failed to write result")
	}
}
