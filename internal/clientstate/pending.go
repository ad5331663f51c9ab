package clientstate

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a pending action is settled twice.
var ErrInvalidTransition = errors.New("invalid pending transition")

// PendingState is where an optimistic action stands.
type PendingState int

const (
	Optimistic PendingState = iota
	Confirmed
	RolledBack
)

func (s PendingState) String() string {
	switch s {
	case Optimistic:
		return "optimistic"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Pending tracks one optimistic action from the moment it is shown locally
// until the server confirms or refuses it. It moves from Optimistic to
// exactly one of Confirmed or RolledBack.
type Pending[T any] struct {
	mu       sync.Mutex
	tempID   string
	state    PendingState
	value    T
	serverID uint
	err      error
}

// NewPending starts an action showing value under a fresh temporary id.
func NewPending[T any](value T) *Pending[T] {
	return &Pending[T]{tempID: uuid.NewString(), state: Optimistic, value: value}
}

func (p *Pending[T]) TempID() string {
	return p.tempID
}

func (p *Pending[T]) State() PendingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Value is the optimistic value, or the server's once confirmed.
func (p *Pending[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// ServerID is 0 until confirmed.
func (p *Pending[T]) ServerID() uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.serverID
}

// Err is the failure that rolled the action back.
func (p *Pending[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Confirm swaps in the server's id and value.
func (p *Pending[T]) Confirm(serverID uint, value T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Optimistic {
		return ErrInvalidTransition
	}
	p.state = Confirmed
	p.serverID = serverID
	p.value = value
	return nil
}

// Rollback marks the action failed and keeps err.
func (p *Pending[T]) Rollback(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Optimistic {
		return ErrInvalidTransition
	}
	p.state = RolledBack
	p.err = err
	return nil
}
