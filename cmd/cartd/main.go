package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cartstore/internal/cart"
	"cartstore/internal/changelog"
	"cartstore/internal/export"
	"cartstore/internal/kv"
	"cartstore/internal/metrics"
	"cartstore/internal/model"
	"cartstore/internal/persist"
)

// Config holds CLI flags for cartd.
type Config struct {
	Backend   string // memory|badger|pebble
	DataDir   string
	HTTPAddr  string
	CartKey   string
	ExportDir string
	ExportSec int
	// Changelog sinks
	ChangelogSink  string // off|file|kafka|both
	ChangelogDir   string
	KafkaBootstrap string
	TopicChangelog string
	// Manifest sink for exports
	ManifestSink   string // file|kafka|both
	TopicManifests string
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("cartd failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Backend, "backend", "pebble", "kv backend: memory|badger|pebble")
	flag.StringVar(&cfg.DataDir, "data-dir", "./data/cart", "kv data directory")
	flag.StringVar(&cfg.HTTPAddr, "http", ":8080", "http listen address")
	flag.StringVar(&cfg.CartKey, "cart-key", persist.DefaultKey, "cart key in the kv store")
	flag.StringVar(&cfg.ExportDir, "export-dir", "./exports", "export directory")
	flag.IntVar(&cfg.ExportSec, "export-interval", 0, "export interval seconds (0 disables)")
	flag.StringVar(&cfg.ChangelogSink, "changelog-sink", "file", "changelog sink: off|file|kafka|both")
	flag.StringVar(&cfg.ChangelogDir, "changelog-dir", "./changelog", "changelog directory for file sink")
	flag.StringVar(&cfg.KafkaBootstrap, "kafka-bootstrap", "", "kafka bootstrap servers, e.g. localhost:9092")
	flag.StringVar(&cfg.TopicChangelog, "topic-changelog", "cart.changelog", "kafka topic for the changelog")
	flag.StringVar(&cfg.ManifestSink, "manifest-sink", "file", "export manifest sink: file|kafka|both")
	flag.StringVar(&cfg.TopicManifests, "topic-manifests", "cart.exports", "kafka topic for export manifests (compacted)")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("starting cartd",
		zap.String("backend", cfg.Backend),
		zap.String("data_dir", cfg.DataDir),
		zap.String("http", cfg.HTTPAddr))

	// Init kv backend
	var store kv.Store
	switch cfg.Backend {
	case "badger":
		b, err := kv.NewBadger(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("init badger: %w", err)
		}
		store = b
	case "memory":
		store = kv.NewMemory()
	default:
		p, err := kv.NewPebble(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("init pebble: %w", err)
		}
		store = p
	}
	defer store.Close()

	mreg := metrics.NewRegistry()
	adapter := persist.NewAdapter(store, persist.Options{
		Key:     cfg.CartKey,
		Logger:  logger,
		Metrics: mreg,
	})

	// Changelog sinks
	var clog changelog.Writer
	if cfg.ChangelogSink == "file" || cfg.ChangelogSink == "both" {
		fw, err := changelog.NewFileWriter(cfg.ChangelogDir, "cart.jsonl")
		if err != nil {
			return fmt.Errorf("init changelog file: %w", err)
		}
		clog = fw
	}
	if (cfg.ChangelogSink == "kafka" || cfg.ChangelogSink == "both") && cfg.KafkaBootstrap != "" {
		kw := changelog.NewKafkaWriter(cfg.KafkaBootstrap, cfg.TopicChangelog)
		if clog == nil {
			clog = kw
		} else {
			clog = changelog.NewMultiWriter(clog, kw)
		}
	}

	st := cart.New(adapter, cart.Options{Logger: logger, Metrics: mreg, Changelog: clog})
	if err := st.Init(); err != nil {
		return fmt.Errorf("init cart: %w", err)
	}

	// Periodic advisory export
	if cfg.ExportSec > 0 {
		exp := export.NewFilesystemExporter(cfg.ExportDir)
		maniFS := export.NewFilesystemManifest(cfg.ExportDir)
		var mani export.Publisher = maniFS
		if (cfg.ManifestSink == "kafka" || cfg.ManifestSink == "both") && cfg.KafkaBootstrap != "" {
			maniK := export.NewKafkaManifest(cfg.KafkaBootstrap, cfg.TopicManifests, "cart-manifest-latest")
			if cfg.ManifestSink == "kafka" {
				mani = maniK
			} else {
				mani = export.MultiPublisher(maniFS, maniK)
			}
		}
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.ExportSec) * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				id := uuid.NewString()
				sum := st.Summary()
				if err := exp.Write(id, sum.Items); err != nil {
					logger.Warn("export failed", zap.String("export_id", id), zap.Error(err))
					continue
				}
				if err := mani.PublishLatest(id, st.LastSeq()); err != nil {
					logger.Warn("export manifest publish failed", zap.String("export_id", id), zap.Error(err))
					continue
				}
				logger.Info("cart exported", zap.String("export_id", id), zap.Int("lines", len(sum.Items)))
			}
		}()
	}

	mux := http.NewServeMux()
	registerHandlers(mux, st, logger)
	mux.Handle("/metrics", mreg.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
	return http.ListenAndServe(cfg.HTTPAddr, mux)
}

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	var perr *persist.PersistenceError
	switch {
	case errors.Is(err, model.ErrInvalidProduct), errors.Is(err, cart.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.As(err, &perr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
