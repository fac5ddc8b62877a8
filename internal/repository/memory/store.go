// Package memory provides in-process implementations of the repository ports. It backs
// the service when no database is configured and keeps service tests hermetic.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// Store holds every table in memory. Transactions are serialized and work on a private
// copy of the tables that replaces the committed state only when they succeed, so
// readers outside a transaction never observe uncommitted rows. Writes made outside a
// transaction take the transaction lock and commit immediately.
type Store struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	now   func() time.Time
	state state
}

// tx is the working copy of an open transaction.
type tx struct {
	store *Store
	mu    sync.Mutex
	state state
}

type state struct {
	customers    map[int64]domain.Customer
	interactions map[int64]domain.Interaction
	reviews      map[int64]domain.Review
	users        map[int64]domain.User
	seq          sequences
}

type sequences struct {
	customer, interaction, review, user int64
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now: func() time.Time { return time.Now().UTC() },
		state: state{
			customers:    map[int64]domain.Customer{},
			interactions: map[int64]domain.Interaction{},
			reviews:      map[int64]domain.Review{},
			users:        map[int64]domain.User{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRepositories returns repositories sharing a fresh store.
func NewRepositories(opts ...Option) repository.Repositories {
	return NewStore(opts...).Repositories()
}

// Repositories exposes the store through the repository ports.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Customers:    &customerRepository{s},
		Interactions: &interactionRepository{s},
		Reviews:      &reviewRepository{s},
		Users:        &userRepository{s},
		Tx:           s,
	}
}

type txKey struct{}

func (s *Store) txFrom(ctx context.Context) *tx {
	if t, ok := ctx.Value(txKey{}).(*tx); ok && t.store == s {
		return t
	}
	return nil
}

// WithinTx implements repository.Transactor. Nested calls join the open transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	t := &tx{store: s, state: s.readCommitted()}

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	s.mu.Lock()
	s.state = t.state
	s.mu.Unlock()
	return nil
}

func (st state) clone() state {
	return state{
		customers:    maps.Clone(st.customers),
		interactions: maps.Clone(st.interactions),
		reviews:      maps.Clone(st.reviews),
		users:        maps.Clone(st.users),
		seq:          st.seq,
	}
}

func (s *Store) read(ctx context.Context, fn func(st *state)) {
	if t := s.txFrom(ctx); t != nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		fn(&t.state)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.state)
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if t := s.txFrom(ctx); t != nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		return fn(&t.state)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	working := s.readCommitted()
	if err := fn(&working); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = working
	s.mu.Unlock()
	return nil
}

func (s *Store) readCommitted() state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func ptrCopy[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
