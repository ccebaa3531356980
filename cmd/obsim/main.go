// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/obsim"
	"github.com/poiesic/obsim/api"
	"github.com/poiesic/obsim/config"
	"github.com/poiesic/obsim/ingestion"
	"github.com/poiesic/obsim/metrics"
	"github.com/poiesic/obsim/search"
	"github.com/poiesic/obsim/server"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "obsim",
		Usage: "Operation breakdown similarity search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP search API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to a YAML configuration file",
					},
				},
			},
			{
				Name:   "rank",
				Usage:  "Rank a datasource file against a query file and print the response",
				Action: rankCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "datasource",
						Usage:    "JSON file with ob_datasource rows and optional allocation_datasource",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "query",
						Usage:    "JSON file with the search request (style_type, operation_data, ...)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of ranking workers",
						Value: 4,
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Load datasource files into a BadgerDB corpus",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "datasource",
						Usage:    "Datasource JSON file (repeatable)",
						Required: true,
					},
					&cli.Int64Flag{
						Name:  "tenant",
						Usage: "Tenant id for rows without one",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-import files that have not changed",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of breakdowns to write in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N breakdowns",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed writes",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if !c.IsSet("log-level") {
		if err := configureLogger(cfg.Log.Level); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := obsim.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	handlerOpts := []api.Option{
		api.WithLogger(slog.Default()),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
		api.WithRequestTimeout(cfg.Server.WriteTimeout),
		api.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateWindow),
	}
	if cfg.Metrics.Enabled {
		handlerOpts = append(handlerOpts, api.WithMetricsHandler(metrics.EnablePrometheus()))
	}
	handler, err := api.NewHandler(engine.Searcher(), handlerOpts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := server.NewTree(slog.Default(), server.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddAPIService(server.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	slog.Info("serving", "addr", httpServer.Addr, "backend", cfg.Storage.Backend, "metrics", cfg.Metrics.Enabled)
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}

func rankCommand(c *cli.Context) error {
	ctx := context.Background()

	ds, err := ingestion.LoadDataset(c.String("datasource"))
	if err != nil {
		return fmt.Errorf("failed to load datasource: %w", err)
	}

	queryData, err := os.ReadFile(c.String("query"))
	if err != nil {
		return fmt.Errorf("failed to read query: %w", err)
	}
	req := search.NewDataSourceRequest()
	if err := json.Unmarshal(queryData, &req.Request); err != nil {
		return fmt.Errorf("failed to decode query: %w", err)
	}
	req.OBDatasource = ds.Rows
	req.AllocationDatasource = ds.Allocations

	// The stored corpus is never read; an in-memory one keeps Open happy.
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Storage.BadgerPath = ""
	cfg.Search.PoolSize = c.Int("pool-size")

	engine, err := obsim.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	resp, err := engine.Searcher().SearchDataSource(ctx, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

func importCommand(c *cli.Context) error {
	ctx := context.Background()

	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}

	cfg := config.Default()
	cfg.Storage.BadgerPath = dbPath
	cfg.Search.PoolSize = 1

	engine, err := obsim.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer engine.Close()

	importer, err := engine.NewImporter(
		ingestion.WithProgress(c.App.ErrWriter),
		ingestion.WithConfig(&ingestion.Config{
			BatchSize:      c.Int("batch-size"),
			ReportInterval: c.Int("report-interval"),
			MaxRetries:     c.Int("max-retries"),
			RetryDelay:     c.Duration("retry-delay"),
			DefaultTenant:  c.Int64("tenant"),
			Force:          c.Bool("force"),
		}))
	if err != nil {
		return err
	}
	defer importer.Release()

	for _, path := range c.StringSlice("datasource") {
		result, err := importer.ImportFile(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}
		if result.Unchanged {
			fmt.Fprintf(c.App.Writer, "%s: unchanged since run %s\n", path, result.RunID)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s: %d breakdowns, %d invalid, %d allocations (run %s)\n",
			path, result.Breakdowns, result.Invalid, result.Allocations, result.RunID)
	}
	return nil
}

// setupLogger configures the default slog logger based on the log-level flag.
func setupLogger(c *cli.Context) error {
	return configureLogger(c.String("log-level"))
}

func configureLogger(levelStr string) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
