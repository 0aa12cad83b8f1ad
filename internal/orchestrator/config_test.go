package orchestrator

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsAnalyst/internal/domain"
)

func TestParseStages(t *testing.T) {
	t.Parallel()

	stages, err := ParseStages(" Research, analyze,,research ")
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageResearch, StageAnalyze}, stages)

	stages, err = ParseStages("")
	require.NoError(t, err)
	assert.Nil(t, stages)

	_, err = ParseStages("research,translate")
	assert.ErrorContains(t, err, "translate")
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}
	assert.Equal(t, time.Duration(0), b.Delay(0))
	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 800*time.Millisecond, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(5))

	flat := Backoff{Initial: 50 * time.Millisecond, Multiplier: 0.5}
	assert.Equal(t, 50*time.Millisecond, flat.Delay(3))
}

func TestBackoffDelayNeverOverflows(t *testing.T) {
	t.Parallel()

	uncapped := Backoff{Initial: time.Second, Multiplier: 10}
	prev := time.Duration(0)
	for retry := 1; retry <= 40; retry++ {
		d := uncapped.Delay(retry)
		require.Positive(t, d, "retry %d", retry)
		require.GreaterOrEqual(t, d, prev, "retry %d", retry)
		prev = d
	}
	assert.Equal(t, time.Duration(math.MaxInt64), uncapped.Delay(11))

	capped := Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 10}
	assert.Equal(t, 30*time.Second, capped.Delay(40))
}

func TestValidateRejectsUnboundedBackoff(t *testing.T) {
	t.Parallel()

	cases := map[string]Backoff{
		"missing max":         {Initial: time.Second, Multiplier: 10},
		"negative initial":    {Initial: -time.Second, Max: time.Second, Multiplier: 2},
		"negative multiplier": {Initial: time.Second, Max: time.Second, Multiplier: -2},
	}
	for name, b := range cases {
		cfg := DefaultConfig()
		cfg.Backoff = b
		assert.ErrorContains(t, cfg.Validate(), "backoff", name)
	}

	cfg := DefaultConfig()
	cfg.Backoff = Backoff{}
	assert.NoError(t, cfg.Validate(), "zero backoff retries immediately")

	_, err := New(Deps{}).Run(context.Background(), "solar power", Config{Backoff: Backoff{Initial: time.Second, Multiplier: 10}})
	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, StateInit, aborted.State)
}

func TestConfigDefaultsAndValidation(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	def := DefaultConfig()
	assert.Equal(t, def.MaxArticles, cfg.MaxArticles)
	assert.Equal(t, def.PerCallTimeout, cfg.PerCallTimeout)
	assert.Equal(t, def.Backoff, cfg.Backoff)
	assert.Zero(t, cfg.RetryLimit, "zero retry limit is meaningful")
	assert.NoError(t, cfg.Validate())

	bad := Config{MaxArticles: -1, RetryLimit: -2, EnabledStages: []Stage{"bogus"}}
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "max_articles")
	assert.ErrorContains(t, err, "retry_limit")
	assert.ErrorContains(t, err, "bogus")

	assert.True(t, Config{}.enabled(StageReport))
	assert.False(t, Config{EnabledStages: []Stage{}}.enabled(StageReport))
	assert.Equal(t, "research,report", stageList(Config{EnabledStages: []Stage{StageReport, StageResearch}}))
}

func TestStateMachine(t *testing.T) {
	t.Parallel()

	var visited []string
	for s := next(StateInit); !s.Terminal(); s = next(s) {
		visited = append(visited, s.String())
	}
	assert.Equal(t, []string{"researching", "analyzing", "fact_checking", "reporting"}, visited)
	assert.Equal(t, StateAborted, next(StateAborted))
	assert.Equal(t, StateDone, next(StateDone))
	assert.Equal(t, "unknown", State(42).String())
	assert.Len(t, stageStates, len(AllStages))
}

func TestAbortedErrorReason(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "run canceled", reason(context.Canceled))
	assert.Equal(t, "fatal error: auth: fatal: denied", reason(&domain.FatalError{Op: "auth", Err: errors.New("denied")}))
	assert.Equal(t, "retries exhausted: net: transient: reset", reason(&domain.TransientError{Op: "net", Err: errors.New("reset")}))

	err := &AbortedError{RunID: "r1", State: StateAnalyzing, Reason: "run canceled", Err: context.Canceled}
	assert.Equal(t, "run r1 aborted in analyzing: run canceled", err.Error())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallWithTimeout(t *testing.T) {
	t.Parallel()

	t.Run("slow call is transient", func(t *testing.T) {
		t.Parallel()
		_, err := callWithTimeout(context.Background(), 10*time.Millisecond, "search", func(context.Context) (int, error) {
			time.Sleep(200 * time.Millisecond)
			return 1, nil
		})
		assert.True(t, domain.IsTransient(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("parent cancel wins", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := callWithTimeout(ctx, time.Second, "search", func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, domain.IsTransient(err))
	})

	t.Run("panic is fatal", func(t *testing.T) {
		t.Parallel()
		_, err := callWithTimeout(context.Background(), time.Second, "inference", func(context.Context) (int, error) {
			panic("adapter bug")
		})
		assert.True(t, domain.IsFatal(err))
		assert.ErrorContains(t, err, "adapter bug")
	})

	t.Run("unclassified error is fatal", func(t *testing.T) {
		t.Parallel()
		_, err := callWithTimeout(context.Background(), time.Second, "inference", func(context.Context) (int, error) {
			return 0, errors.New("bad request")
		})
		assert.True(t, domain.IsFatal(err))
	})

	t.Run("value passes through", func(t *testing.T) {
		t.Parallel()
		v, err := callWithTimeout(context.Background(), time.Second, "inference", func(context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})
}
