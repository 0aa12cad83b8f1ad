package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsAnalyst/internal/config"
	"NewsAnalyst/internal/infrastructure/llm"
	"NewsAnalyst/internal/infrastructure/scheduler"
	"NewsAnalyst/internal/infrastructure/search"
	"NewsAnalyst/internal/infrastructure/storage"
	"NewsAnalyst/internal/infrastructure/telegram"
	"NewsAnalyst/internal/logging"
	"NewsAnalyst/internal/orchestrator"
	"NewsAnalyst/internal/ports"
	"NewsAnalyst/internal/usecase"
)

const stopTimeout = 10 * time.Second

// newRedisClient builds the search cache client; tests swap it to observe Close.
var newRedisClient = redis.NewClient

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	analysis  *usecase.Analysis
	scheduler *usecase.Scheduler
	logger    *slog.Logger
	closers   []func() error
}

// New builds a runnable application instance from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	runCfg, err := PipelineConfig(cfg)
	if err != nil {
		return nil, err
	}

	inference, err := newInference(cfg.Inference)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	if inference == nil {
		baseLogger.Warn("inference disabled, agents fall back to heuristics", "provider", cfg.Inference.Provider)
	}

	searchClient, err := a.newSearch(cfg, baseLogger.With("component", "search"))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var archive ports.ReportArchive
	if cfg.Archive.DSN != "" {
		store, err := storage.Open(cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		archive = store
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		n := telegram.NewNotifier(tg.BotToken, tg.ChatID)
		if tg.APIBase != "" {
			n = n.WithAPIBase(tg.APIBase)
		}
		notifier = n
	}

	orch := orchestrator.New(orchestrator.Deps{
		Inference: inference,
		Search:    searchClient,
		Logger:    baseLogger.With("component", "orchestrator"),
	})

	a.analysis = usecase.NewAnalysis(usecase.AnalysisDeps{
		Runner:   orch,
		Config:   runCfg,
		Archive:  archive,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "analysis"),
	})
	a.scheduler = usecase.NewScheduler(
		scheduler.NewIntervalScheduler(cfg.Schedule.Interval),
		a.analysis,
		cfg.Topics,
		baseLogger.With("component", "scheduler"),
	)
	return a, nil
}

// Analyze runs a single topic through the pipeline.
func (a *Application) Analyze(ctx context.Context, topic string) (usecase.Outcome, error) {
	return a.analysis.Analyze(ctx, topic)
}

// Watch re-analyzes the configured topics on the schedule until ctx ends.
func (a *Application) Watch(ctx context.Context) error {
	if len(a.cfg.Topics) == 0 {
		return errors.New("no topics configured to watch")
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching topics", "topics", strings.Join(a.cfg.Topics, "; "), "interval", a.cfg.Schedule.Interval)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases database and cache connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// PipelineConfig converts the file configuration into orchestrator settings.
func PipelineConfig(cfg config.Config) (orchestrator.Config, error) {
	p := cfg.Pipeline
	out := orchestrator.Config{
		MaxArticles:      p.MaxArticles,
		PerCallTimeout:   p.PerCallTimeout,
		ConcurrencyLimit: p.ConcurrencyLimit,
		MaxQueries:       p.MaxQueries,
		Backoff: orchestrator.Backoff{
			Initial:    p.Backoff.Initial,
			Max:        p.Backoff.Max,
			Multiplier: p.Backoff.Multiplier,
		},
	}
	if p.RetryLimit != nil {
		out.RetryLimit = *p.RetryLimit
	} else {
		out.RetryLimit = orchestrator.DefaultConfig().RetryLimit
	}
	if p.EnabledStages != nil {
		stages, err := orchestrator.ParseStages(strings.Join(p.EnabledStages, ","))
		if err != nil {
			return orchestrator.Config{}, fmt.Errorf("pipeline: %w", err)
		}
		if stages == nil {
			stages = []orchestrator.Stage{}
		}
		out.EnabledStages = stages
	}
	out.Generation.Temperature = cfg.Inference.Temperature
	out.Generation.MaxTokens = cfg.Inference.MaxTokens
	if err := out.Validate(); err != nil {
		return orchestrator.Config{}, fmt.Errorf("pipeline: %w", err)
	}
	return out, nil
}

func newInference(cfg config.InferenceConfig) (ports.InferenceClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderGroq, config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, nil
		}
		baseURL := cfg.BaseURL
		if baseURL == "" && strings.EqualFold(cfg.Provider, config.ProviderGroq) {
			baseURL = llm.GroqBaseURL
		}
		return llm.NewOpenAIFromOptions(llm.OpenAIOptions{
			APIKey:       cfg.APIKey,
			BaseURL:      baseURL,
			Model:        cfg.Model,
			StrictSchema: cfg.StrictSchema,
		})
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return llm.NewAnthropicFromOptions(llm.AnthropicOptions{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	case config.ProviderHTTP:
		if cfg.BaseURL == "" {
			return nil, errors.New("http provider needs baseUrl")
		}
		return llm.NewHTTPClient(cfg.BaseURL, cfg.APIKey, cfg.Model, nil), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// newSearch builds the provider chain, then the rate limiter, then the cache,
// so cache hits skip the limiter.
func (a *Application) newSearch(cfg config.Config, logger *slog.Logger) (ports.SearchClient, error) {
	registry := search.NewRegistry()
	if cfg.Search.TavilyAPIKey != "" {
		registry.Register(search.NewTavily(cfg.Search.TavilyAPIKey, search.TavilyOptions{
			SearchDepth:    cfg.Search.TavilyDepth,
			IncludeDomains: cfg.Search.IncludeDomains,
		}))
	}
	registry.Register(search.NewDuckDuckGo("", nil))

	chain, err := registry.Chain(cfg.Search.Providers, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("search chain ready", "providers", chain.Providers())

	var client ports.SearchClient = search.NewRateLimited(chain, cfg.Search.RatePerSecond, cfg.Search.Burst)

	if cfg.Cache.Addr != "" {
		rdb := newRedisClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		client = search.NewCached(client, rdb, cfg.Cache.TTL, logger.With("layer", "cache"))
	}
	return client, nil
}
