package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// loopSafely calls f until ctx is done, restarting the loop after a panic.
func loopSafely(ctx context.Context, f func()) {
	defer func() {
		if v := recover(); v != nil {
			log.Errorf("Panic: %v, restarting", v)
			time.Sleep(time.Second)
			go loopSafely(ctx, f)
		}
	}()

	for ctx.Err() == nil {
		f()
	}
}
