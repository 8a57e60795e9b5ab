package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"courier/errors"

	"github.com/stretchr/testify/require"
)

func TestOutbox_Deliver_And_Drain(t *testing.T) {
	req := require.New(t)
	outbox := NewOutbox(slog.Default(), 2, 50*time.Millisecond)

	req.NoError(outbox.Deliver(context.Background(), "first"))
	req.NoError(outbox.Deliver(context.Background(), "second"))

	req.Equal("first", <-outbox.Queue())
	req.Equal("second", <-outbox.Queue())
}

func TestOutbox_Full_Drops_After_Timeout(t *testing.T) {
	req := require.New(t)
	outbox := NewOutbox(slog.Default(), 1, 20*time.Millisecond)

	req.NoError(outbox.Deliver(context.Background(), "fits"))

	// Nobody drains: the second delivery must give up, not block forever
	err := outbox.Deliver(context.Background(), "dropped")
	req.ErrorIs(err, errors.ErrOutboxFull)
}

func TestOutbox_Closed_Rejects_Producers(t *testing.T) {
	req := require.New(t)
	outbox := NewOutbox(slog.Default(), 1, 20*time.Millisecond)

	outbox.Close()
	outbox.Close() // idempotent

	err := outbox.Deliver(context.Background(), "late")
	req.ErrorIs(err, errors.ErrOutboxClosed)
}
