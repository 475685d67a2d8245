// Command lodserver runs the LOD engine against a synthetic graph, exposing
// the inspection API and a websocket stream of level decisions. It exists so
// the engine can be exercised and profiled without a host renderer.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"brain2-lod/internal/application/engine"
	"brain2-lod/internal/config"
	"brain2-lod/internal/infrastructure/memory"
	"brain2-lod/internal/infrastructure/observability"
	"brain2-lod/internal/infrastructure/render"
	"brain2-lod/internal/infrastructure/tracing"
	lodhttp "brain2-lod/internal/interfaces/http"
	lodws "brain2-lod/internal/interfaces/websocket"
)

var (
	flagConfig string
	flagNodes  int
	flagEdges  int
	flagSeed   int64
)

func main() {
	root := &cobra.Command{
		Use:   "lodserver",
		Short: "Level-of-detail engine for large node-link graphs",
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().IntVar(&flagNodes, "nodes", 50000, "synthetic graph node count")
	root.PersistentFlags().IntVar(&flagEdges, "edges", 75000, "synthetic graph edge count")
	root.PersistentFlags().Int64Var(&flagSeed, "seed", 42, "synthetic graph random seed")

	root.AddCommand(serveCmd(), simulateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with the inspection API and websocket stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			provider := memory.NewProvider()
			memory.Generate(provider, flagNodes, flagEdges, flagSeed)
			viewport := memory.NewViewport(1.0)

			var metrics *observability.Collector
			if cfg.EnableMetrics {
				metrics = observability.NewCollector("brain2_lod")
			}

			tracer := tracing.Noop()
			if cfg.EnableTracing {
				tracer, err = tracing.Init("brain2-lod", cfg.Environment, cfg.TracingEndpoint)
				if err != nil {
					return err
				}
				defer tracer.Shutdown(context.Background()) //nolint:errcheck
			}

			hub := lodws.NewHub(logger)
			defer hub.Close()
			adapter := render.Multi{
				render.NewStyleAdapter(),
				lodws.NewStreamAdapter(hub, logger),
			}

			eng := engine.New(cfg, provider, viewport, adapter, logger,
				engine.WithMetrics(metrics),
				engine.WithTracer(tracer),
			)
			provider.OnStructuralChange(eng.OnStructuralChange)
			eng.Start()
			defer eng.Stop()

			if flagConfig != "" {
				watcher, err := config.NewWatcher(flagConfig, logger)
				if err != nil {
					return err
				}
				watcher.OnChange(eng.UpdateConfig)
				watcher.Start()
				defer watcher.Stop()
			}

			handler := lodhttp.NewHandler(eng, metrics, hub.HandleWebSocket, logger)
			srv := &http.Server{
				Addr:              cfg.Server.Address,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("inspection server listening", zap.String("address", cfg.Server.Address))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		},
	}
}

func simulateCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Sweep the zoom range and print the engine's level decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			cfg.Enabled = true
			// Short debounce keeps the sweep snappy; the decisions are the
			// same as with the production window.
			cfg.DebounceTimeMs = 10

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			provider := memory.NewProvider()
			memory.Generate(provider, flagNodes, flagEdges, flagSeed)
			viewport := memory.NewViewport(1.0)
			adapter := render.NewStyleAdapter()

			eng := engine.New(cfg, provider, viewport, adapter, logger)
			provider.OnStructuralChange(eng.OnStructuralChange)
			eng.Start()
			defer eng.Stop()

			fmt.Printf("%-8s %-10s %-10s\n", "zoom", "level", "clusters")
			for i := 0; i <= steps; i++ {
				zoom := 1.0 - float64(i)/float64(steps)
				viewport.SetZoom(zoom)
				time.Sleep(cfg.DebounceTime() + 150*time.Millisecond)

				st := eng.Status()
				total := 0
				for _, n := range st.ClusterCounts {
					total += n
				}
				fmt.Printf("%-8.2f %-10s %-10d\n", zoom, st.Level, total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 10, "number of zoom steps in the sweep")
	return cmd
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
