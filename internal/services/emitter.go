package services

import (
	"context"

	"github.com/pagecraft/pagecraft-backend/internal/realtime"
	"github.com/pagecraft/pagecraft-backend/internal/realtime/bus"
)

// SSEEmitter is the "publish an event" port the core calls after each
// successful mutation; the transport behind it is supplied by the host.
type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

type RedisEmitter struct{ Bus bus.Bus }

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	_ = e.Bus.Publish(ctx, msg)
}
