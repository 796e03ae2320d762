package main

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ricesearch/relevance/internal/evaluation"
	"github.com/ricesearch/relevance/internal/search"
	"github.com/ricesearch/relevance/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Serve the catalog over HTTP:
- POST /v1/search, /v1/explain, /v1/parse, /v1/match, /v1/expand
- GET/PUT /v1/weights (updates are shared with other instances over the bus)
- GET /v1/documents, /v1/documents/{id}
- POST /v1/evaluation/run
- GET /healthz, /readyz, /version, /metrics`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "HTTP server port (default from config)")
	cmd.Flags().String("host", "", "HTTP server host (default from config)")
	cmd.Flags().String("documents", "", "documents file (JSON or YAML), overrides the configured catalog")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	docsPath, _ := cmd.Flags().GetString("documents")

	a, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		a.cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		a.cfg.Host, _ = cmd.Flags().GetString("host")
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	svc, err := a.startServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close(a)

	if err := a.buildEngine(svc.metrics.Recorder); err != nil {
		return err
	}
	if err := a.restoreWeights(); err != nil {
		return err
	}

	docs, err := a.documents(docsPath)
	if err != nil {
		return err
	}
	catalog := search.NewCollection(docs)

	evalHandler, err := a.evaluationHandler(svc)
	if err != nil {
		return err
	}

	srv, err := server.New(server.ConfigFrom(*a.cfg, version), server.Deps{
		Engine:     a.engine,
		Catalog:    catalog,
		Bus:        svc.bus,
		Source:     svc.source,
		Metrics:    svc.metrics,
		Evaluation: evalHandler,
		Logger:     a.log,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Info("Shutdown signal received")
	}

	// Stop applies the configured shutdown timeout itself.
	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}

// evaluationHandler builds the harness behind /v1/evaluation/run from the
// configured evaluation fixtures. Winning weights are applied to the
// serving engine when a request asks for it.
func (a *app) evaluationHandler(svc *services) (*evaluation.Handler, error) {
	ev := a.cfg.Evaluation

	docs, err := loadEvaluationDocuments(ev.DocumentsPath)
	if err != nil {
		return nil, err
	}
	samples, err := loadSamples(ev.SamplesPath)
	if err != nil {
		return nil, err
	}
	grid, err := loadGrid(ev.GridPath)
	if err != nil {
		return nil, err
	}

	harness := evaluation.NewHarness(a.engine, docs, evaluation.Options{
		K:        ev.K,
		Workers:  ev.Workers,
		Recorder: svc.metrics.Recorder,
		Logger:   a.log,
		Bus:      svc.bus,
		Source:   svc.source,
	})
	return evaluation.NewHandler(harness, a.engine.Weights(), samples, grid), nil
}
