// Copyright (c) 2025 BVK Chaitanya

// Package ctxutil provides small context-aware helpers used by the bot
// loops and the engine client.
package ctxutil

import (
	"context"
	"os"
	"sync"
	"time"
)

// Sleep blocks the caller for the given duration. Returns early if the
// input context is canceled.
func Sleep(ctx context.Context, d time.Duration) {
	sctx, scancel := context.WithTimeout(ctx, d)
	<-sctx.Done()
	scancel()
}

// Retry runs the input function till it succeeds or till the input context
// is canceled. Returns nil if the input function is successful or the last
// non-nil error from the function after the context has expired.
func Retry(ctx context.Context, interval time.Duration, f func() error) (err error) {
	for err = f(); err != nil && context.Cause(ctx) == nil; err = f() {
		Sleep(ctx, interval)
	}
	return
}

// CloseGroup tracks background goroutines whose lifetime is bound to the
// owning object. Close cancels their shared context and waits for them.
type CloseGroup struct {
	closeCtx  context.Context
	causeFunc context.CancelCauseFunc

	wg sync.WaitGroup

	once sync.Once
}

func (cg *CloseGroup) init() {
	cg.closeCtx, cg.causeFunc = context.WithCancelCause(context.Background())
}

func (cg *CloseGroup) Close() {
	cg.once.Do(cg.init)
	cg.causeFunc(os.ErrClosed)
	cg.wg.Wait()
}

func (cg *CloseGroup) Context() context.Context {
	cg.once.Do(cg.init)
	return cg.closeCtx
}

func (cg *CloseGroup) Go(f func(ctx context.Context)) {
	cg.once.Do(cg.init)

	cg.wg.Add(1)
	go func() {
		f(cg.closeCtx)
		cg.wg.Done()
	}()
}
