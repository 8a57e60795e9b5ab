package runtime

import (
	"log/slog"
	"sync"
	"time"

	"courier/contract"
)

// LivenessState is the per-connection heartbeat state.
type LivenessState int

const (
	StateAlive LivenessState = iota
	StateAwaitingPong
	StateDead
)

// Monitor is the heartbeat state machine of a single connection. It probes
// the transport at a fixed interval and arms a short death timer on each
// probe; a pong disarms it, a timeout force-closes the transport. The
// monitor is the only backstop against half-open connections that never
// signal close on their own.
//
// All timers are owned by the monitor and cancelled on Stop, so a closed
// connection leaves no timer behind referencing freed state.
type Monitor struct {
	log        *slog.Logger
	transport  contract.Transport
	probeEvery time.Duration
	deathAfter time.Duration
	onDead     func()

	mu    sync.Mutex
	state LivenessState
	probe *time.Timer
	death *time.Timer
	done  bool
}

func NewMonitor(log *slog.Logger, transport contract.Transport,
	probeEvery, deathAfter time.Duration, onDead func()) *Monitor {
	return &Monitor{
		log:        log,
		transport:  transport,
		probeEvery: probeEvery,
		deathAfter: deathAfter,
		onDead:     onDead,
		state:      StateAlive,
	}
}

// Start arms the first probe.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return
	}
	m.probe = time.AfterFunc(m.probeEvery, m.sendProbe)
}

func (m *Monitor) sendProbe() {
	m.mu.Lock()
	if m.done || m.state == StateDead {
		m.mu.Unlock()
		return
	}

	if err := m.transport.Ping(); err != nil {
		// The probe could not even be written: the transport is gone.
		m.log.Debug("Liveness probe write failed", "error", err)
		m.dieLocked()
		return
	}

	m.state = StateAwaitingPong
	m.death = time.AfterFunc(m.deathAfter, m.deathTimerFired)
	m.mu.Unlock()
}

// Pong records a liveness response. Returns the connection to ALIVE and
// schedules the next probe. A pong arriving after the death timer fired is
// ignored: the timeout is final.
func (m *Monitor) Pong() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done || m.state == StateDead {
		return
	}
	if m.state != StateAwaitingPong {
		return
	}
	m.death.Stop()
	m.death = nil
	m.state = StateAlive
	m.probe = time.AfterFunc(m.probeEvery, m.sendProbe)
}

func (m *Monitor) deathTimerFired() {
	m.mu.Lock()
	if m.done || m.state != StateAwaitingPong {
		m.mu.Unlock()
		return
	}
	m.dieLocked()
}

// dieLocked finalizes the DEAD transition. Called with m.mu held; releases
// it before invoking onDead so the callback may take registry locks.
func (m *Monitor) dieLocked() {
	m.state = StateDead
	m.done = true
	m.stopTimersLocked()
	m.mu.Unlock()

	m.log.Debug("Connection declared dead")
	_ = m.transport.Close()
	if m.onDead != nil {
		m.onDead()
	}
}

// Stop cancels all timers without declaring the connection dead. Used when
// the transport closed on its own. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return
	}
	m.done = true
	m.stopTimersLocked()
}

func (m *Monitor) stopTimersLocked() {
	if m.probe != nil {
		m.probe.Stop()
		m.probe = nil
	}
	if m.death != nil {
		m.death.Stop()
		m.death = nil
	}
}

// State reports the current heartbeat state.
func (m *Monitor) State() LivenessState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
