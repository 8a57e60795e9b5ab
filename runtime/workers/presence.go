package workers

import (
	"context"
	"log/slog"
	"sort"

	"courier/contract"
	"courier/domain"
)

// PresenceWorker is the single place roster broadcasts happen. It consumes
// the registry's change signals and pushes a full roster snapshot to every
// open connection, resolved or not. Centralizing the side effect here keeps
// broadcast calls out of every mutation site.
type PresenceWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
}

func NewPresenceWorker(log *slog.Logger, registry contract.IRegistry) *PresenceWorker {
	return &PresenceWorker{log: log, registry: registry}
}

func (w *PresenceWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.registry.Changes():
			w.Broadcast(ctx)
		}
	}
}

// Broadcast recomputes the roster and sends it to the current membership.
// The snapshot is full, not a diff, so clients that missed intermediate
// updates are consistent after the next one.
func (w *PresenceWorker) Broadcast(ctx context.Context) {
	conns := w.registry.Snapshot()
	update := domain.RosterUpdate{Online: buildRoster(conns)}

	for _, conn := range conns {
		if err := conn.Sink().Deliver(ctx, update); err != nil {
			w.log.Debug("Roster delivery failed", "error", err)
		}
	}
}

// buildRoster deduplicates identities across multiple connections of the
// same user. Sorted by user id for a stable wire payload.
func buildRoster(conns []contract.Conn) []domain.RosterEntry {
	seen := make(map[string]struct{}, len(conns))
	entries := make([]domain.RosterEntry, 0, len(conns))
	for _, conn := range conns {
		identity, resolved := conn.Identity()
		if !resolved {
			continue
		}
		if _, dup := seen[identity.ID]; dup {
			continue
		}
		seen[identity.ID] = struct{}{}
		entries = append(entries, domain.RosterEntry{
			UserID:   identity.ID,
			Username: identity.DisplayName,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries
}
