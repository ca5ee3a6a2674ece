package services

import (
	"context"
	"sync"

	"github.com/yeremiapane/restaurant-dashboard/catalog"
)

type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// MutationState: applied-locally -> pending-remote -> reconciled | rolled-back | discarded
type MutationState string

const (
	StateAppliedLocally MutationState = "applied-locally"
	StatePendingRemote  MutationState = "pending-remote"
	StateReconciled     MutationState = "reconciled"
	StateRolledBack     MutationState = "rolled-back"
	StateDiscarded      MutationState = "discarded"
)

func (s MutationState) Terminal() bool {
	return s == StateReconciled || s == StateRolledBack || s == StateDiscarded
}

// Mutation tracks one optimistic catalog write from local apply to settlement.
type Mutation struct {
	Kind       MutationKind
	Level      catalog.Level
	BusinessID string

	mu      sync.Mutex
	state   MutationState
	path  catalog.Path
	since uint64 // clock stamp dari apply lokal mutation ini
	err   error
	done  chan struct{}
}

func newMutation(kind MutationKind, level catalog.Level, businessID string, path catalog.Path) *Mutation {
	return &Mutation{
		Kind:       kind,
		Level:      level,
		BusinessID: businessID,
		state:      StateAppliedLocally,
		path:       path.Clone(),
		done:       make(chan struct{}),
	}
}

func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NodeID -> temp id sampai create berhasil, lalu id canonical
func (m *Mutation) NodeID() string {
	return m.Path().Last()
}

func (m *Mutation) Path() catalog.Path {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path.Clone()
}

// Err is the remote failure that caused a rollback, nil otherwise.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mutation settles or ctx ends.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) setPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAppliedLocally {
		m.state = StatePendingRemote
	}
}

func (m *Mutation) setPath(p catalog.Path) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = p.Clone()
}

func (m *Mutation) localStamp() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.since
}

func (m *Mutation) settle(state MutationState, err error) {
	m.mu.Lock()
	if m.state.Terminal() {
		m.mu.Unlock()
		return
	}
	m.state = state
	m.err = err
	m.mu.Unlock()
	close(m.done)
}
