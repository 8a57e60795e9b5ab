//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"courier/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Sink delivers one outbound payload to a single connection.
// Implementations must not block past their configured delivery timeout:
// a slow client drops payloads, it never stalls the relay.
type Sink interface {
	Deliver(ctx context.Context, payload any) error
}

// Conn is the registry's read view of one open connection.
type Conn interface {
	// Identity reports the resolved identity, if any. Connections without a
	// resolved identity receive roster updates but no relayed messages.
	Identity() (domain.Identity, bool)
	Sink() Sink
}

// IRegistry is what the relay and the presence broadcaster consume.
// Mutations (admit, resolve, remove) stay on the concrete registry, owned
// by the transport layer.
type IRegistry interface {
	Snapshot() []Conn
	FindByIdentity(id string) []Conn
	Len() int
	// Changes signals membership or identity changes. Signals coalesce:
	// a receiver observing one signal sees the registry state at or after
	// the mutation that produced it.
	Changes() <-chan struct{}
}

// Transport is the slice of a connection the liveness monitor drives:
// probe sending and forced teardown of half-open peers.
type Transport interface {
	Ping() error
	Close() error
}

// IIdentityResolver turns a caller-supplied session credential into a
// verified identity, or reports it as absent/invalid.
type IIdentityResolver interface {
	Resolve(credential string) (domain.Identity, error)
}
