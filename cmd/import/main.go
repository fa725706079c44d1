package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"dsimport/internal/config"
	"dsimport/internal/importer"
	"dsimport/internal/metrics"
	"dsimport/internal/metrics/datadog"
	"dsimport/internal/store"

	// register all backends with the store factory.
	// config specifies which to use but we build in support for all of them.
	_ "dsimport/internal/store/all"
)

// main is the entry point for the import binary. It loads the run config,
// optionally initializes a metrics backend, opens the destination store and
// runs the batch. Per-dataset failures are reported in the summary but do not
// change the exit code; only setup errors do.
func main() {
	var (
		cfgPath           string
		datasetRoot       string
		storeKind         string
		storeDSN          string
		fullRefresh       bool
		metricsBackendFlg string
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (optional)")
	flag.StringVar(&datasetRoot, "dataset", "", "dataset directory to import (overrides config)")
	flag.StringVar(&storeKind, "store", "", "store backend kind (overrides config)")
	flag.StringVar(&storeDSN, "dsn", "", "store DSN (overrides config)")
	flag.BoolVar(&fullRefresh, "full-refresh", false, "drop destination tables before recreating them")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fatalf("load config: %v", err)
		}
	}
	if datasetRoot != "" {
		cfg.DatasetRoot = datasetRoot
	}
	if storeKind != "" {
		cfg.Store.Kind = storeKind
	}
	if storeDSN != "" {
		cfg.Store.DSN = storeDSN
	}
	if fullRefresh {
		cfg.FullRefresh = true
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}

	// Decide metrics backend: flag → env → none.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName:    "dataset_import",
			Tags:       extraTags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			if *verbose {
				log.Printf("metrics: backend=%v tags=%v", backendName, extraTags)
			}
			metrics.SetBackend(b)
			// Close stops the flush loop and performs a final Flush.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	st, err := store.New(ctx, store.Config{Kind: cfg.Store.Kind, DSN: cfg.Store.DSN})
	if err != nil {
		fatalf("open store (%s): %v", cfg.Store.Kind, err)
	}
	defer st.Close()

	var logger importer.Logger = importer.DiscardLogger
	if *verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	res, err := importer.New(st, cfg, logger).Run(ctx)
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("datasets=%d loaded=%d excluded=%d failed=%d in %s\n",
		res.Datasets, res.Loaded, res.Excluded, res.Failed,
		time.Since(start).Truncate(time.Millisecond))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
