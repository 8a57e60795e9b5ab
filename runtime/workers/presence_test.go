package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"courier/domain"
	"courier/runtime"

	"github.com/stretchr/testify/require"
)

type rosterSink struct {
	mu      sync.Mutex
	updates []domain.RosterUpdate
}

func (s *rosterSink) Deliver(_ context.Context, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if update, ok := payload.(domain.RosterUpdate); ok {
		s.updates = append(s.updates, update)
	}
	return nil
}

func (s *rosterSink) Last() (domain.RosterUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.updates) == 0 {
		return domain.RosterUpdate{}, false
	}
	return s.updates[len(s.updates)-1], true
}

func (s *rosterSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

func TestPresence_Roster_Deduplicates_Identities(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewPresenceWorker(slogDiscard(), registry)

	alice := domain.Identity{ID: "A", DisplayName: "alice"}
	sink1, sink2, sink3 := &rosterSink{}, &rosterSink{}, &rosterSink{}

	// alice has two tabs, bob one, plus one unresolved connection
	registry.Resolve(registry.Admit(sink1), alice)
	registry.Resolve(registry.Admit(sink2), alice)
	registry.Resolve(registry.Admit(sink3), domain.Identity{ID: "B", DisplayName: "bob"})
	ghost := &rosterSink{}
	registry.Admit(ghost)

	worker.Broadcast(context.Background())

	// Every connection gets the snapshot, the unresolved one included
	for _, sink := range []*rosterSink{sink1, sink2, sink3, ghost} {
		update, ok := sink.Last()
		req.True(ok)
		req.Equal([]domain.RosterEntry{
			{UserID: "A", Username: "alice"},
			{UserID: "B", Username: "bob"},
		}, update.Online)
	}
}

func TestPresence_Removal_Leaves_No_Stale_Entry(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewPresenceWorker(slogDiscard(), registry)

	aliceSink, bobSink := &rosterSink{}, &rosterSink{}
	aliceConn := registry.Admit(aliceSink)
	registry.Resolve(aliceConn, domain.Identity{ID: "A", DisplayName: "alice"})
	registry.Resolve(registry.Admit(bobSink), domain.Identity{ID: "B", DisplayName: "bob"})

	registry.Remove(aliceConn)
	worker.Broadcast(context.Background())

	update, ok := bobSink.Last()
	req.True(ok)
	req.Equal([]domain.RosterEntry{{UserID: "B", Username: "bob"}}, update.Online)
}

func TestPresence_Worker_Broadcasts_On_Change_Signal(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewPresenceWorker(slogDiscard(), registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	sink := &rosterSink{}
	conn := registry.Admit(sink)
	registry.Resolve(conn, domain.Identity{ID: "A", DisplayName: "alice"})

	// The worker consumes the coalesced signal and pushes a snapshot
	req.Eventually(func() bool {
		update, ok := sink.Last()
		return ok && len(update.Online) == 1 && update.Online[0].UserID == "A"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("worker did not stop on context cancellation")
	}
}
