package orchestrator

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"NewsAnalyst/internal/ports"
)

// Stage names a pipeline step that can be switched on or off.
type Stage string

const (
	StageResearch  Stage = "research"
	StageAnalyze   Stage = "analyze"
	StageFactCheck Stage = "factcheck"
	StageReport    Stage = "report"
)

// AllStages lists the stages in pipeline order.
var AllStages = []Stage{StageResearch, StageAnalyze, StageFactCheck, StageReport}

// ParseStages reads a comma separated stage list such as "research,analyze".
// An empty string selects every stage.
func ParseStages(value string) ([]Stage, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	stages := []Stage{}
	for _, part := range strings.Split(value, ",") {
		s := Stage(strings.ToLower(strings.TrimSpace(part)))
		if s == "" {
			continue
		}
		if !slices.Contains(AllStages, s) {
			return nil, fmt.Errorf("unknown stage %q", part)
		}
		if !slices.Contains(stages, s) {
			stages = append(stages, s)
		}
	}
	return stages, nil
}

// Backoff is an exponential delay schedule between retries.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Delay returns the wait before the given retry, starting at 1.
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 1 || b.Initial <= 0 {
		return 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(b.Initial) * math.Pow(mult, float64(retry-1))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	// float64(math.MaxInt64) rounds up, so >= keeps the conversion in range.
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Config controls a single run.
type Config struct {
	MaxArticles      int
	RetryLimit       int
	PerCallTimeout   time.Duration
	ConcurrencyLimit int
	MaxQueries       int

	// EnabledStages selects the stages to run; nil runs all of them.
	EnabledStages []Stage

	Backoff    Backoff
	Generation ports.InferenceOptions
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		MaxArticles:      10,
		RetryLimit:       2,
		PerCallTimeout:   30 * time.Second,
		ConcurrencyLimit: 3,
		MaxQueries:       3,
		Backoff: Backoff{
			Initial:    500 * time.Millisecond,
			Max:        8 * time.Second,
			Multiplier: 2,
		},
		Generation: ports.InferenceOptions{Temperature: 0.1, MaxTokens: 1024},
	}
}

// withDefaults fills unset sizes and durations. RetryLimit is kept as given,
// zero meaning no retries.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxArticles == 0 {
		c.MaxArticles = def.MaxArticles
	}
	if c.PerCallTimeout == 0 {
		c.PerCallTimeout = def.PerCallTimeout
	}
	if c.ConcurrencyLimit == 0 {
		c.ConcurrencyLimit = def.ConcurrencyLimit
	}
	if c.MaxQueries == 0 {
		c.MaxQueries = def.MaxQueries
	}
	if c.Backoff == (Backoff{}) {
		c.Backoff = def.Backoff
	}
	return c
}

// Validate rejects settings that would make a run unbounded.
func (c Config) Validate() error {
	var errs []error
	if c.MaxArticles < 0 {
		errs = append(errs, fmt.Errorf("max_articles must be positive, got %d", c.MaxArticles))
	}
	if c.RetryLimit < 0 {
		errs = append(errs, fmt.Errorf("retry_limit must not be negative, got %d", c.RetryLimit))
	}
	if c.PerCallTimeout < 0 {
		errs = append(errs, fmt.Errorf("per_call_timeout must be positive, got %s", c.PerCallTimeout))
	}
	if c.ConcurrencyLimit < 0 {
		errs = append(errs, fmt.Errorf("concurrency_limit must be positive, got %d", c.ConcurrencyLimit))
	}
	if c.MaxQueries < 0 {
		errs = append(errs, fmt.Errorf("max_queries must be positive, got %d", c.MaxQueries))
	}
	if c.Backoff.Initial < 0 {
		errs = append(errs, fmt.Errorf("backoff initial must not be negative, got %s", c.Backoff.Initial))
	}
	if c.Backoff.Multiplier < 0 {
		errs = append(errs, fmt.Errorf("backoff multiplier must not be negative, got %g", c.Backoff.Multiplier))
	}
	if c.Backoff.Initial > 0 && c.Backoff.Max <= 0 {
		errs = append(errs, fmt.Errorf("backoff max must be positive when initial is set, got %s", c.Backoff.Max))
	}
	for _, s := range c.EnabledStages {
		if !slices.Contains(AllStages, s) {
			errs = append(errs, fmt.Errorf("unknown stage %q", s))
		}
	}
	return errors.Join(errs...)
}

func (c Config) enabled(s Stage) bool {
	return c.EnabledStages == nil || slices.Contains(c.EnabledStages, s)
}
