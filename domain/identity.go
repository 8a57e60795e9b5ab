// Package domain contains core concepts of the messaging relay.
// This file defines verified identities and the derived online roster.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is a verified (id, display name) pair attached to a connection
// once its credential has been resolved. Immutable for the connection's
// lifetime.
type Identity struct {
	ID          string
	DisplayName string
}

// RosterEntry is one online identity as seen by clients.
type RosterEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// RosterUpdate is the full-snapshot presence payload pushed to every
// connection on each membership change. There is no delta protocol: a
// newly connected client is consistent after its first update.
type RosterUpdate struct {
	Online []RosterEntry `json:"online"`
}
