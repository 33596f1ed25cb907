package failover

import (
	"context"
	"net/http"
	"time"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = 800 * time.Millisecond

	MessageCredentialsExhausted = "all credentials exhausted"
	MessageNoCredentials        = "no credentials configured"
)

// Call performs one outbound attempt with a single credential.
type Call[T any] func(ctx context.Context, cred model.Credential) (T, error)

// Observer is notified after every attempt. outcome is "success" or a Kind name.
type Observer interface {
	ObserveAttempt(pool, credential, outcome string)
}

// Outcome is the discriminated result of Execute: either OK with Value, or a
// terminal Failure. It is never both.
type Outcome[T any] struct {
	OK         bool
	Value      T
	Failure    Failure
	Credential string
	Attempts   int
}

type Options struct {
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger
	Observer    Observer
	// Sleep replaces the backoff wait, mainly in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine runs calls against an ordered credential pool. It keeps no state
// between calls; exhaustion is tracked per Execute.
type Engine struct {
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
	observer    Observer
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		logger:      opts.Logger,
		observer:    opts.Observer,
		sleep:       opts.Sleep,
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.backoff < 0 {
		e.backoff = DefaultBackoff
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.sleep == nil {
		e.sleep = sleepContext
	}
	return e
}

// Execute tries the credentials of pool in order.
//
// Quota-class failures advance to the next credential after a fixed backoff.
// Client, upstream and transport failures end the call at once. The total
// number of attempts never exceeds the engine's cap, whatever the pool size.
func Execute[T any](ctx context.Context, e *Engine, pool model.CredentialPool, call Call[T]) Outcome[T] {
	var out Outcome[T]
	if pool.Len() == 0 {
		out.Failure = Failure{Kind: KindUpstream, Status: http.StatusInternalServerError, Message: MessageNoCredentials}
		return out
	}

	for i, cred := range pool.Credentials {
		if out.Attempts >= e.maxAttempts {
			break
		}
		if i > 0 {
			if err := e.sleep(ctx, e.backoff); err != nil {
				out.Failure = Failure{Kind: KindTransport, Status: http.StatusInternalServerError, Message: err.Error()}
				return out
			}
		}

		out.Attempts++
		value, err := call(ctx, cred)
		if err == nil {
			e.observe(pool.Name, cred.Name, "success")
			out.OK = true
			out.Value = value
			out.Credential = cred.Name
			return out
		}

		failure := Classify(err)
		e.observe(pool.Name, cred.Name, failure.Kind.String())
		e.logger.Warn(
			"credential attempt failed",
			zap.String("pool", pool.Name),
			zap.String("credential", cred.Name),
			zap.Int("attempt", out.Attempts),
			zap.Stringer("kind", failure.Kind),
			zap.Int("status", failure.Status),
			zap.String("message", failure.Message),
		)
		if failure.Kind != KindQuota {
			out.Failure = failure
			out.Credential = cred.Name
			return out
		}
	}

	out.Failure = Failure{Kind: KindQuota, Status: http.StatusTooManyRequests, Message: MessageCredentialsExhausted}
	return out
}

func (e *Engine) observe(pool, credential, outcome string) {
	if e.observer != nil {
		e.observer.ObserveAttempt(pool, credential, outcome)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
