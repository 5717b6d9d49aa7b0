package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"plaques2gallery/internal/browser"
	"plaques2gallery/internal/config"
	"plaques2gallery/internal/daemon"
	"plaques2gallery/internal/deps"
	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/metrics"
	"plaques2gallery/internal/normalize"
	"plaques2gallery/internal/notifications"
	"plaques2gallery/internal/ocr"
	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/resolver"
	"plaques2gallery/internal/search"
	"plaques2gallery/internal/services/llm"
	"plaques2gallery/internal/workflow"
)

// Options configures process runtime behavior.
type Options struct {
	LogLevel      string
	SkipPreflight bool
}

// Runtime owns the long-lived components of one process.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *records.Store
	Quota    *quota.Counter
	Metrics  *metrics.Metrics
	Workflow *workflow.Manager
	Daemon   *daemon.Daemon

	closers []func() error
}

// Open wires configuration, logging, storage, quota, and the workflow
// manager. Stages are not registered; call RegisterStages before running.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := records.Open(cfg)
	if err != nil {
		logger.Error("open record store", logging.Error(err))
		return nil, err
	}

	rt := &Runtime{Config: cfg, Logger: logger, Store: store}

	counter, closeQuota, err := quota.NewFromConfig(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init quota: %w", err)
	}
	rt.Quota = counter
	rt.closers = append(rt.closers, closeQuota)

	rt.Metrics = metrics.New()
	notifier := notifications.NewService(cfg)
	rt.Workflow = workflow.NewManager(cfg, store, counter, logger,
		workflow.WithNotifier(notifier),
		workflow.WithMetrics(rt.Metrics),
	)
	rt.Daemon, err = daemon.New(cfg, store, counter, rt.Workflow, logger,
		daemon.WithMetrics(rt.Metrics),
		daemon.WithNotifier(notifier),
	)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return rt, nil
}

// RegisterStages builds the OCR engine, model client, search provider, and
// page renderer and registers the three pipeline stages.
func (rt *Runtime) RegisterStages(ctx context.Context) error {
	cfg := rt.Config

	engine, err := ocr.NewTesseractEngine(cfg.OCR.Languages, cfg.OCR.TessdataPrefix)
	if err != nil {
		return fmt.Errorf("init tesseract: %w", err)
	}
	rt.closers = append(rt.closers, engine.Close)
	extractor := ocr.NewExtractor(engine, ocr.OptionsFromConfig(cfg), logging.NewComponentLogger(rt.Logger, "ocr"))

	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	normalizer, err := normalize.New(client, cfg.Normalize.MinConfidence, rt.Logger)
	if err != nil {
		return fmt.Errorf("init normalizer: %w", err)
	}

	searcher := search.NewSearcher(search.NewGoogleProviderFromConfig(cfg), rt.Quota, cfg.Search.Results, rt.Logger)

	renderer, err := browser.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	rt.closers = append(rt.closers, renderer.Close)

	rt.Workflow.ConfigureStages(workflow.StageSet{
		Normalizer: normalize.NewStage(extractor, normalizer, rt.Logger),
		Searcher:   search.NewStage(searcher),
		Resolver:   resolver.NewStage(resolver.New(renderer, resolver.OptionsFromConfig(cfg), rt.Logger)),
	})
	return nil
}

// Close releases stage resources and the record store, newest first.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	if rt.Daemon != nil {
		if err := rt.Daemon.Close(); err != nil {
			errs = append(errs, err)
		}
	} else if rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.Daemon = nil
	rt.Store = nil
	return errors.Join(errs...)
}

// Prepare registers stages and runs the workflow preflight unless skipped.
func (rt *Runtime) Prepare(ctx context.Context, opts Options) error {
	logDependencySnapshot(rt.Logger, rt.Config)
	if err := rt.RegisterStages(ctx); err != nil {
		return err
	}
	if opts.SkipPreflight {
		return nil
	}
	return rt.Workflow.Preflight(ctx)
}

// Watch runs the watch loop until SIGINT or SIGTERM.
func Watch(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := Open(signalCtx, cfg, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Prepare(signalCtx, opts); err != nil {
		return err
	}
	if err := rt.Daemon.Watch(signalCtx); err != nil {
		return err
	}
	rt.Logger.Info("plaques2gallery shutting down")
	return nil
}

// RunOnce ingests when scan is set, then processes pending work once. An
// interrupt stops the run between records.
func RunOnce(cmdCtx context.Context, cfg *config.Config, opts Options, scan bool) (workflow.Summary, error) {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := Open(signalCtx, cfg, opts)
	if err != nil {
		return workflow.Summary{}, err
	}
	defer rt.Close()

	if err := rt.Prepare(signalCtx, opts); err != nil {
		return workflow.Summary{}, err
	}
	return rt.Daemon.RunOnce(signalCtx, scan)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("search_key_present", strings.TrimSpace(cfg.Search.APIKey) != ""),
		logging.Bool("search_engine_present", strings.TrimSpace(cfg.Search.EngineID) != ""),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_model", cfg.LLM.Model),
		logging.String("ocr_languages", cfg.OCR.Languages),
		logging.String("resolver_engine", cfg.Resolver.Engine),
		logging.String("quota_backend", cfg.Quota.Backend),
		logging.Int("quota_limit", cfg.Quota.Limit),
	}
	tessdata := deps.CheckTessdata(cfg.OCR.Languages, cfg.OCR.TessdataPrefix)
	attrs = append(attrs,
		logging.Bool("tessdata_available", tessdata.Available),
		logging.String("tessdata_dir", tessdata.Path),
	)
	if !tessdata.Available {
		attrs = append(attrs, logging.String("tessdata_detail", tessdata.Detail))
	}
	if strings.EqualFold(cfg.Resolver.Engine, config.EngineChrome) {
		chrome := deps.CheckChrome(cfg.Resolver.ChromePath)
		attrs = append(attrs,
			logging.Bool("chrome_available", chrome.Available),
			logging.String("chrome_binary", chrome.Path),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
