// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSleepCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Sleep(ctx, time.Minute)
	if d := time.Since(start); d > time.Second {
		t.Errorf("canceled sleep took %s", d)
	}
}

func TestRetry(t *testing.T) {
	count := 0
	err := Retry(context.Background(), time.Millisecond, func() error {
		count++
		if count < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("want 3 attempts, got %d", count)
	}
}

func TestCloseGroup(t *testing.T) {
	var cg CloseGroup
	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		cg.Go(func(ctx context.Context) {
			<-ctx.Done()
			done <- struct{}{}
		})
	}
	cg.Close()
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		default:
			t.Fatalf("goroutine %d did not complete", i)
		}
	}
}
