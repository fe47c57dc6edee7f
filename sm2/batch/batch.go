// Package batch verifies many independent SM2 signatures concurrently on a
// bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/TheusHen/SM2/sm2"
	"github.com/TheusHen/SM2/sm2/identity"
	"github.com/TheusHen/SM2/sm2/logging"
)

// Item is one signature to check.
type Item struct {
	Public    *sm2.PublicKey
	Z         []byte
	Message   []byte
	Signature *sm2.Signature
}

// ItemFor builds an Item from a peer and an encoded r ‖ s signature.
func ItemFor(p identity.Peer, message, signature []byte) (Item, error) {
	sig, err := sm2.ParseSignature(signature)
	if err != nil {
		return Item{}, err
	}
	return Item{Public: p.PublicKey, Z: p.Z, Message: message, Signature: sig}, nil
}

type Option func(*Verifier)

func WithLogger(l zerolog.Logger) Option {
	return func(v *Verifier) { v.log = l }
}

// Verifier owns an ants pool. Release it when done.
type Verifier struct {
	pool *ants.Pool
	log  zerolog.Logger
}

// NewVerifier starts a pool of concurrency workers; zero or less means
// GOMAXPROCS.
func NewVerifier(concurrency int, opts ...Option) (*Verifier, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	v := &Verifier{log: logging.Nop()}
	for _, opt := range opts {
		opt(v)
	}
	pool, err := ants.NewPool(concurrency, ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}
	v.pool = pool
	return v, nil
}

// Verify checks every item and returns one error slot per item, nil for a
// valid signature. Items not yet started when ctx is done report ctx.Err().
func (v *Verifier) Verify(ctx context.Context, items []Item) []error {
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			it := items[i]
			if it.Public == nil {
				errs[i] = sm2.NewError(sm2.ErrInvalidLength, "batch: item has no public key")
				return
			}
			errs[i] = sm2.Verify(it.Public, it.Z, it.Message, it.Signature)
		}
		if err := v.pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		v.log.Debug().Int("items", len(items)).Int("failed", failed).Msg("batch verification finished with failures")
	}
	return errs
}

// VerifyAll returns nil when every signature is valid, otherwise the first
// failure annotated with its index.
func (v *Verifier) VerifyAll(ctx context.Context, items []Item) error {
	for i, err := range v.Verify(ctx, items) {
		if err != nil {
			return fmt.Errorf("batch: item %d: %w", i, err)
		}
	}
	return nil
}

// Release stops the worker pool.
func (v *Verifier) Release() {
	v.pool.Release()
}
