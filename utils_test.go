package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoopSafely(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	go loopSafely(ctx, func() {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		if calls.Load() >= 3 {
			cancel()
		}
	})

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
}
