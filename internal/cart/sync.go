package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ovenworks/bakehouse-backend/pkg/logger"
	"github.com/ovenworks/bakehouse-backend/pkg/metrics"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// SyncState tracks how far an owner's cart has progressed through hydration.
type SyncState int

const (
	StateUninitialized SyncState = iota
	StateLoading
	StateReady
)

func (s SyncState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

const defaultPushTimeout = 10 * time.Second

// Synchronizer reconciles the fast cache snapshot with the durable store.
// Writes land in the cache immediately; each owner's latest snapshot is
// pushed to Postgres after a debounce window, with failed pushes retried by
// a background sweep.
type Synchronizer struct {
	store    StoreRepository
	debounce time.Duration
	logg     *logger.Logger
	metrics  *metrics.StorefrontMetrics

	mu     sync.Mutex
	states map[string]*ownerState
}

type ownerState struct {
	owner Owner
	state SyncState
	dirty bool
	doc   Document
	gen   uint64
	timer *time.Timer
}

func NewSynchronizer(store StoreRepository, debounce time.Duration, logg *logger.Logger, m *metrics.StorefrontMetrics) (*Synchronizer, error) {
	if store == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Synchronizer{
		store:    store,
		debounce: debounce,
		logg:     logg,
		metrics:  m,
		states:   map[string]*ownerState{},
	}, nil
}

func (s *Synchronizer) ownerStateLocked(owner Owner) *ownerState {
	key := owner.Key()
	st, ok := s.states[key]
	if !ok {
		st = &ownerState{owner: owner, state: StateUninitialized}
		s.states[key] = st
	}
	return st
}

// State reports the sync state and dirtiness for an owner. Owners never
// seen before read as uninitialized and clean.
func (s *Synchronizer) State(owner Owner) (SyncState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[owner.Key()]
	if !ok {
		return StateUninitialized, false
	}
	return st.state, st.dirty
}

// Hydrate loads the owner's durable cart into a document. A missing row
// reads as an empty cart. The owner ends up ready regardless of whether a
// cart existed.
func (s *Synchronizer) Hydrate(ctx context.Context, owner Owner) (Document, error) {
	s.mu.Lock()
	st := s.ownerStateLocked(owner)
	if st.state == StateReady {
		doc := st.doc
		s.mu.Unlock()
		return doc, nil
	}
	st.state = StateLoading
	s.mu.Unlock()

	record, err := s.store.FindByOwner(ctx, owner)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.mu.Lock()
		st.state = StateUninitialized
		s.mu.Unlock()
		return EmptyDocument(), fmt.Errorf("hydrating cart: %w", err)
	}

	doc := EmptyDocument()
	if record != nil {
		doc.Lines = make([]Line, 0, len(record.Items))
		for _, item := range record.Items {
			doc.Lines = append(doc.Lines, Line{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		doc.UpdatedAt = record.UpdatedAt
	}

	s.mu.Lock()
	st.state = StateReady
	if !st.dirty {
		st.doc = doc
	} else {
		// local edits won while we were loading; keep them
		doc = st.doc
	}
	s.mu.Unlock()
	return doc, nil
}

// MarkDirty records the owner's latest snapshot and schedules a push after
// the debounce window. Consecutive edits reset the window so a burst of
// changes becomes one write.
func (s *Synchronizer) MarkDirty(owner Owner, doc Document) {
	s.mu.Lock()
	st := s.ownerStateLocked(owner)
	st.doc = doc
	st.dirty = true
	st.gen++
	if st.state == StateUninitialized {
		st.state = StateReady
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	st.timer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultPushTimeout)
		defer cancel()
		if err := s.push(ctx, owner); err != nil && s.logg != nil {
			s.logg.Error(ctx, "debounced cart push failed", err)
		}
	})
	s.mu.Unlock()
}

// Flush pushes the owner's snapshot immediately, bypassing the debounce.
// Checkout calls this so the durable cart matches what the shopper sees.
func (s *Synchronizer) Flush(ctx context.Context, owner Owner) error {
	s.mu.Lock()
	st, ok := s.states[owner.Key()]
	if !ok || !st.dirty {
		s.mu.Unlock()
		return nil
	}
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	s.mu.Unlock()
	return s.push(ctx, owner)
}

func (s *Synchronizer) push(ctx context.Context, owner Owner) error {
	s.mu.Lock()
	st, ok := s.states[owner.Key()]
	if !ok || !st.dirty {
		s.mu.Unlock()
		return nil
	}
	doc := st.doc
	gen := st.gen
	s.mu.Unlock()

	start := time.Now()
	_, err := s.store.Replace(ctx, owner, doc.Lines)
	s.metrics.ObserveSyncPush(time.Since(start))
	if err != nil {
		s.metrics.IncSyncPush("error")
		return fmt.Errorf("pushing cart: %w", err)
	}
	s.metrics.IncSyncPush("ok")

	s.mu.Lock()
	// only clear dirty if no edits landed while the push was in flight
	if st.gen == gen {
		st.dirty = false
	}
	s.mu.Unlock()
	return nil
}

// RetrySweep re-pushes every owner still dirty. The cron worker runs this so
// a transient store outage cannot strand edits in the cache.
func (s *Synchronizer) RetrySweep(ctx context.Context) error {
	s.mu.Lock()
	owners := make([]Owner, 0)
	for _, st := range s.states {
		if st.dirty {
			owners = append(owners, st.owner)
		}
	}
	s.mu.Unlock()

	var errs error
	for _, owner := range owners {
		if err := s.push(ctx, owner); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// TransitionToUser merges a guest's durable cart into the user's on login.
// Quantities for the same product sum; neither side's items are lost. The
// guest cart is cleared afterwards so the merge cannot be replayed.
func (s *Synchronizer) TransitionToUser(ctx context.Context, guest, user Owner) (Document, error) {
	if guest.IsUser() || !user.IsUser() {
		return EmptyDocument(), fmt.Errorf("transition requires a guest source and user target")
	}

	if err := s.Flush(ctx, guest); err != nil {
		return EmptyDocument(), err
	}

	guestDoc, err := s.Hydrate(ctx, guest)
	if err != nil {
		return EmptyDocument(), err
	}
	userDoc, err := s.Hydrate(ctx, user)
	if err != nil {
		return EmptyDocument(), err
	}

	merged := Merge(guestDoc, userDoc)

	if _, err := s.store.Replace(ctx, user, merged.Lines); err != nil {
		return EmptyDocument(), fmt.Errorf("persisting merged cart: %w", err)
	}
	if err := s.store.Clear(ctx, guest); err != nil {
		return EmptyDocument(), fmt.Errorf("clearing guest cart: %w", err)
	}

	s.mu.Lock()
	delete(s.states, guest.Key())
	st := s.ownerStateLocked(user)
	st.state = StateReady
	st.doc = merged
	st.dirty = false
	s.mu.Unlock()

	return merged, nil
}

// Close stops pending debounce timers and flushes anything still dirty.
func (s *Synchronizer) Close(ctx context.Context) error {
	s.mu.Lock()
	owners := make([]Owner, 0, len(s.states))
	for _, st := range s.states {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		if st.dirty {
			owners = append(owners, st.owner)
		}
	}
	s.mu.Unlock()

	var errs error
	for _, owner := range owners {
		if err := s.push(ctx, owner); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
