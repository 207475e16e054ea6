// Package cep bridges batch postal-code lookups to the web API: a bounded
// worker pool drains the batch, each item retries transient failures on a
// short fixed delay, and results come back in the caller's input order.
package cep

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sampa-labs/brgen-cli/internal/resilience"
	"github.com/sampa-labs/brgen-cli/pkg/viacep"
)

// Client is the slice of the web API the resolver needs. *viacep.Client
// satisfies it; tests stub it.
type Client interface {
	Lookup(ctx context.Context, cep string) (*viacep.Address, error)
}

const (
	// DefaultWorkers bounds concurrent lookups.
	DefaultWorkers = 10

	// DefaultMaxAttempts caps per-item tries, counting the first.
	DefaultMaxAttempts = 100

	// DefaultRetryDelay separates consecutive tries of one item.
	DefaultRetryDelay = 10 * time.Millisecond
)

// Config tunes the pool. Zero values take the defaults.
type Config struct {
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

// Result is one lookup outcome. A failure carries Err and a nil Address; it
// never aborts the rest of the batch.
type Result struct {
	CEP     string
	Address *viacep.Address
	Err     error
}

// OK reports whether the lookup produced an address.
func (r Result) OK() bool {
	return r.Err == nil && r.Address != nil
}

// Resolver fans batches of postal codes out to the API.
type Resolver struct {
	client Client
	cfg    Config
}

// New builds a resolver over client.
func New(client Client, cfg Config) *Resolver {
	return &Resolver{client: client, cfg: cfg.withDefaults()}
}

// Resolve looks up every code in ceps. The result slice is positional:
// results[i] answers ceps[i], and duplicate inputs each get their own slot.
// Cancelling ctx stops the pool promptly; items not yet attempted record
// the context error.
func (r *Resolver) Resolve(ctx context.Context, ceps []string) []Result {
	results := make([]Result, len(ceps))
	if len(ceps) == 0 {
		return results
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    r.cfg.MaxAttempts,
		InitialBackoff: r.cfg.RetryDelay,
		MaxBackoff:     r.cfg.RetryDelay,
		Multiplier:     1.0,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, code := range ceps {
		g.Go(func() error {
			// Workers isolate their failures into the result slot, so the
			// group only stops early on context cancellation.
			if err := gctx.Err(); err != nil {
				results[i] = Result{CEP: code, Err: err}
				return nil
			}

			addr, err := resilience.DoVal(gctx, retryCfg, func(ctx context.Context) (*viacep.Address, error) {
				return r.client.Lookup(ctx, code)
			})
			if err != nil {
				zap.L().Debug("cep: lookup failed", zap.String("cep", code), zap.Error(err))
				results[i] = Result{CEP: code, Err: err}
				return nil
			}
			results[i] = Result{CEP: code, Address: addr}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ResolveOne is the single-item convenience form.
func (r *Resolver) ResolveOne(ctx context.Context, code string) Result {
	return r.Resolve(ctx, []string{code})[0]
}
