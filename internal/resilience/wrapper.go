package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/monastery360/agent/internal/llm"
)

// ErrExhausted means neither model produced output. It wraps the last cause.
var ErrExhausted = errors.New("resilience: all model attempts failed")

// Policy controls retries against the primary model.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Retryable decides whether an error earns another primary attempt.
	Retryable func(error) bool
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Retryable:   llm.IsOverloaded,
		Sleep:       sleepContext,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = def.Retryable
	}
	if p.Sleep == nil {
		p.Sleep = def.Sleep
	}
	return p
}

// MaxBackoff caps a single wait between primary attempts.
const MaxBackoff = 30 * time.Second

// delay is the wait before retry n+1, where n counts from zero. It doubles
// per retry and saturates at MaxBackoff.
func (p Policy) delay(n int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < n && d < MaxBackoff; i++ {
		d *= 2
	}
	return min(d, MaxBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures a Wrapper.
type Options struct {
	Primary     string
	Secondary   string
	CallTimeout time.Duration
	Policy      Policy
}

// Wrapper calls a model with bounded retries on overload, then a secondary
// model, then gives up with ErrExhausted.
type Wrapper struct {
	client      llm.Client
	primary     string
	secondary   string
	callTimeout time.Duration
	policy      Policy
	logger      *zap.Logger
}

// New builds a Wrapper. A nil client is allowed; Generate then always fails
// with ErrExhausted.
func New(client llm.Client, opts Options, logger *zap.Logger) *Wrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 20 * time.Second
	}
	return &Wrapper{
		client:      client,
		primary:     opts.Primary,
		secondary:   opts.Secondary,
		callTimeout: opts.CallTimeout,
		policy:      opts.Policy.withDefaults(),
		logger:      logger.Named("resilience"),
	}
}

type state int

const (
	stateAttempt state = iota
	stateBackoff
	stateFallbackModel
	stateStaticFallback
	stateDone
)

func (s state) String() string {
	switch s {
	case stateAttempt:
		return "attempt"
	case stateBackoff:
		return "backoff"
	case stateFallbackModel:
		return "fallback_model"
	case stateStaticFallback:
		return "static_fallback"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Generate runs prompt through the primary model, retrying overloads with
// exponential backoff, then through the secondary model. The returned error,
// if any, always matches ErrExhausted.
func (w *Wrapper) Generate(ctx context.Context, prompt string) (string, error) {
	if w.client == nil {
		return "", fmt.Errorf("%w: no model configured", ErrExhausted)
	}

	var (
		st      = stateAttempt
		attempt int
		out     string
		cause   error
	)

	for {
		switch st {
		case stateAttempt:
			attempt++
			out, cause = w.call(ctx, w.primary, prompt)
			st = w.afterPrimary(ctx, attempt, cause)
			if cause != nil {
				w.logger.Warn("primary model call failed",
					zap.Int("attempt", attempt),
					zap.String("model", w.primary),
					zap.Stringer("next", st),
					zap.Error(cause))
			}

		case stateBackoff:
			if err := w.policy.Sleep(ctx, w.policy.delay(attempt-1)); err != nil {
				cause = err
				st = stateStaticFallback
				continue
			}
			st = stateAttempt

		case stateFallbackModel:
			if w.secondary == "" || ctx.Err() != nil {
				st = stateStaticFallback
				continue
			}
			out, cause = w.call(ctx, w.secondary, prompt)
			if cause != nil {
				w.logger.Warn("secondary model call failed",
					zap.String("model", w.secondary),
					zap.Error(cause))
				st = stateStaticFallback
				continue
			}
			st = stateDone

		case stateStaticFallback:
			if cause == nil {
				cause = errors.New("no secondary model")
			}
			return "", fmt.Errorf("%w: %w", ErrExhausted, cause)

		case stateDone:
			return out, nil
		}
	}
}

func (w *Wrapper) afterPrimary(ctx context.Context, attempt int, err error) state {
	switch {
	case err == nil:
		return stateDone
	case ctx.Err() != nil:
		return stateStaticFallback
	case errors.Is(err, context.DeadlineExceeded):
		return stateFallbackModel
	case w.policy.Retryable(err) && attempt < w.policy.MaxAttempts:
		return stateBackoff
	case w.policy.Retryable(err):
		return stateFallbackModel
	default:
		return stateStaticFallback
	}
}

func (w *Wrapper) call(ctx context.Context, model, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()
	return w.client.Generate(callCtx, prompt, model)
}

// Available reports whether a model client is configured.
func (w *Wrapper) Available() bool {
	return w.client != nil
}
