package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/monastery360/agent/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedClient answers each call with the next step of its script; the
// last step repeats.
type scriptedClient struct {
	mu     sync.Mutex
	steps  []func(ctx context.Context, model string) (string, error)
	models []string
}

func (c *scriptedClient) Generate(ctx context.Context, _ string, model string) (string, error) {
	c.mu.Lock()
	i := len(c.models)
	c.models = append(c.models, model)
	step := c.steps[min(i, len(c.steps)-1)]
	c.mu.Unlock()
	return step(ctx, model)
}

func (c *scriptedClient) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.models...)
}

func reply(s string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return s, nil }
}

func fail(err error) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return "", err }
}

func overloaded() func(context.Context, string) (string, error) {
	return fail(&llm.OverloadedError{Provider: "test", StatusCode: 529})
}

// byModel answers differently for the primary and secondary model.
func byModel(primary, secondary func(context.Context, string) (string, error)) func(context.Context, string) (string, error) {
	return func(ctx context.Context, model string) (string, error) {
		if model == "secondary" {
			return secondary(ctx, model)
		}
		return primary(ctx, model)
	}
}

func blockUntilDone() func(context.Context, string) (string, error) {
	return func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newWrapper(t *testing.T, client llm.Client, secondary string, sleeper *sleepRecorder) *Wrapper {
	t.Helper()
	return New(client, Options{
		Primary:     "primary",
		Secondary:   secondary,
		CallTimeout: 50 * time.Millisecond,
		Policy:      Policy{Sleep: sleeper.sleep},
	}, zaptest.NewLogger(t))
}

func TestGenerateSucceedsFirstTry(t *testing.T) {
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){reply("Tashi delek!")}}
	sleeper := &sleepRecorder{}

	out, err := newWrapper(t, client, "secondary", sleeper).Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Tashi delek!", out)
	assert.Equal(t, []string{"primary"}, client.calls())
	assert.Empty(t, sleeper.delays)
}

func TestGenerateRetriesOverloadThenSucceeds(t *testing.T) {
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){
		overloaded(), overloaded(), reply("third time lucky"),
	}}
	sleeper := &sleepRecorder{}

	out, err := newWrapper(t, client, "secondary", sleeper).Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", out)
	assert.Equal(t, []string{"primary", "primary", "primary"}, client.calls())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sleeper.delays)
}

func TestGenerateAlwaysOverloaded(t *testing.T) {
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){overloaded()}}
	sleeper := &sleepRecorder{}

	out, err := newWrapper(t, client, "secondary", sleeper).Generate(context.Background(), "hi")
	assert.Empty(t, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, llm.ErrOverloaded)

	assert.Equal(t, []string{"primary", "primary", "primary", "secondary"}, client.calls())
	// No wait after the final primary attempt.
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sleeper.delays)
}

func TestGenerateFallsBackToSecondaryModel(t *testing.T) {
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){
		byModel(overloaded(), reply("from the backup")),
	}}
	sleeper := &sleepRecorder{}

	out, err := newWrapper(t, client, "secondary", sleeper).Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "from the backup", out)
	assert.Equal(t, []string{"primary", "primary", "primary", "secondary"}, client.calls())
}

func TestGenerateNonRetryableGoesStraightToStatic(t *testing.T) {
	boom := errors.New("invalid api key")
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){
		byModel(fail(boom), reply("should not be used")),
	}}
	sleeper := &sleepRecorder{}

	_, err := newWrapper(t, client, "secondary", sleeper).Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"primary"}, client.calls())
	assert.Empty(t, sleeper.delays)
}

func TestGenerateCallTimeoutSkipsToSecondary(t *testing.T) {
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){
		byModel(blockUntilDone(), reply("quick backup")),
	}}
	sleeper := &sleepRecorder{}

	out, err := newWrapper(t, client, "secondary", sleeper).Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "quick backup", out)
	assert.Equal(t, []string{"primary", "secondary"}, client.calls())
	assert.Empty(t, sleeper.delays)
}

func TestGenerateCallerCancelled(t *testing.T) {
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){blockUntilDone()}}
	sleeper := &sleepRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newWrapper(t, client, "secondary", sleeper).Generate(ctx, "hi")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"primary"}, client.calls())
}

func TestGenerateWithoutSecondaryModel(t *testing.T) {
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){overloaded()}}
	sleeper := &sleepRecorder{}

	_, err := newWrapper(t, client, "", sleeper).Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []string{"primary", "primary", "primary"}, client.calls())
}

func TestGenerateWithoutClient(t *testing.T) {
	w := New(nil, Options{Primary: "primary"}, nil)
	assert.False(t, w.Available())

	_, err := w.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestDefaultSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}

func TestPolicyDelayDoubles(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 500*time.Millisecond, p.delay(0))
	assert.Equal(t, time.Second, p.delay(1))
	assert.Equal(t, 2*time.Second, p.delay(2))
}

func TestPolicyDelaySaturates(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 16*time.Second, p.delay(5))
	assert.Equal(t, MaxBackoff, p.delay(6))
	for _, n := range []int{40, 63, 64, 1000} {
		assert.Equal(t, MaxBackoff, p.delay(n), "retry %d", n)
	}

	slow := Policy{BaseDelay: time.Minute}
	assert.Equal(t, MaxBackoff, slow.delay(0))
}

func TestGenerateManyAttemptsKeepsDelaysBounded(t *testing.T) {
	sleeper := &sleepRecorder{}
	client := &scriptedClient{steps: []func(context.Context, string) (string, error){overloaded()}}
	w := New(client, Options{
		Primary: "primary",
		Policy:  Policy{MaxAttempts: 70, Sleep: sleeper.sleep},
	}, zaptest.NewLogger(t))

	_, err := w.Generate(context.Background(), "hello")
	require.ErrorIs(t, err, ErrExhausted)
	require.Len(t, sleeper.delays, 69)
	for _, d := range sleeper.delays {
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, MaxBackoff)
	}
}
