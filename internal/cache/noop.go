package cache

import (
	"context"
	"time"
)

// Noop is a Store that never holds anything. It is used when no Redis
// address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Del(context.Context, ...string) error { return nil }
