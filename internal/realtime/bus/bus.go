package bus

import (
	"context"

	"github.com/pagecraft/pagecraft-backend/internal/realtime"
)

// Bus fans events out across instances. Publish sends to every instance;
// StartForwarder delivers remote messages into the local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
