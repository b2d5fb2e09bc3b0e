// Package pool owns the identity→handle registry: exactly one live remote
// session per identity, rehydrated from or persisted to the session store.
// All shared mutable state of the process lives behind this package's locks.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/clonner/clonner/internal/logging"
	"github.com/clonner/clonner/internal/remote"
	"github.com/clonner/clonner/internal/session"
)

// Pool maps identities to resident authenticated handles.
type Pool struct {
	client remote.Client
	store  *session.Store
	logger *logrus.Logger

	mu      sync.Mutex
	handles map[string]remote.Handle
	locks   map[string]*identityLock
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

// New builds an empty pool over the given remote client and session store.
func New(client remote.Client, store *session.Store, logger *logrus.Logger) *Pool {
	return &Pool{
		client:  client,
		store:   store,
		logger:  logger,
		handles: make(map[string]remote.Handle),
		locks:   make(map[string]*identityLock),
	}
}

// GetOption tweaks Get's behavior per call.
type GetOption func(*getOptions)

type getOptions struct {
	forceRefresh bool
}

// ForceRefresh discards the resident handle and rebuilds it from the
// persisted blob before returning it, trading a rehydration round-trip for
// session freshness. Callers opt in per operation.
func ForceRefresh() GetOption {
	return func(o *getOptions) { o.forceRefresh = true }
}

// Acquire resolves a handle for identity: rehydrates the persisted session
// when one exists, otherwise performs a paced fresh login and persists the
// resulting state. The new handle replaces any resident one.
func (p *Pool) Acquire(ctx context.Context, identity, password string) (remote.Handle, error) {
	unlock := p.lockIdentity(identity)
	defer unlock()

	blob, err := p.store.Load(identity)
	switch {
	case err == nil:
		return p.rehydrate(ctx, identity, blob)
	case errors.Is(err, session.ErrNotFound):
		return p.freshLogin(ctx, identity, password)
	default:
		return nil, fmt.Errorf("read persisted session: %w", err)
	}
}

// Get returns the resident handle for identity. Absence is the recoverable
// ErrNotAuthenticated, never an internal error.
func (p *Pool) Get(ctx context.Context, identity string, opts ...GetOption) (remote.Handle, error) {
	var options getOptions
	for _, opt := range opts {
		opt(&options)
	}

	unlock := p.lockIdentity(identity)
	defer unlock()

	if options.forceRefresh {
		blob, err := p.store.Load(identity)
		if err == nil {
			return p.rehydrate(ctx, identity, blob)
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("read persisted session: %w", err)
		}
		// No blob to refresh from: fall through to the resident handle.
	}

	p.mu.Lock()
	handle, ok := p.handles[identity]
	p.mu.Unlock()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return handle, nil
}

// Invalidate removes the resident handle, forcing the next Get to fail with
// ErrNotAuthenticated. Used when the remote API signals login_required.
func (p *Pool) Invalidate(identity string) {
	p.mu.Lock()
	delete(p.handles, identity)
	p.mu.Unlock()

	p.logger.WithFields(logging.OpFields(identity, "invalidate")).Info("handle_invalidated")
}

// rehydrate rebuilds a handle from a persisted blob. Restriction-class
// failures keep the blob; anything else presumes corruption and drops it.
func (p *Pool) rehydrate(ctx context.Context, identity string, blob []byte) (remote.Handle, error) {
	handle, err := p.client.LoadState(ctx, identity, blob)
	if err != nil {
		if _, ok := remote.AsRestriction(err); ok {
			p.logger.WithFields(logging.OpFields(identity, "rehydrate")).Warnf("rehydrate_restricted: %v", err)
			return nil, fmt.Errorf("%w: %w", ErrRemoteRestricted, err)
		}
		p.logger.WithFields(logging.OpFields(identity, "rehydrate")).Errorf("rehydrate_failed, dropping blob: %v", err)
		if dropErr := p.store.Drop(identity); dropErr != nil {
			p.logger.WithFields(logging.OpFields(identity, "rehydrate")).Errorf("drop_blob_failed: %v", dropErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrSessionCorrupt, err)
	}

	p.install(identity, handle)
	p.logger.WithFields(logging.OpFields(identity, "rehydrate")).Debug("session_rehydrated")
	return handle, nil
}

func (p *Pool) freshLogin(ctx context.Context, identity, password string) (remote.Handle, error) {
	handle, err := p.client.Login(ctx, identity, password)
	if err != nil {
		if _, ok := remote.AsRestriction(err); ok {
			p.logger.WithFields(logging.OpFields(identity, "login")).Warnf("login_rejected: %v", err)
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return nil, fmt.Errorf("fresh login: %w", err)
	}

	blob, err := handle.DumpState()
	if err != nil {
		p.logger.WithFields(logging.OpFields(identity, "login")).Errorf("dump_state_failed: %v", err)
	} else if err := p.store.Save(identity, blob); err != nil {
		// The in-memory handle still works; only restart resumption is lost.
		p.logger.WithFields(logging.OpFields(identity, "login")).Errorf("persist_session_failed: %v", err)
	}

	p.install(identity, handle)
	p.logger.WithFields(logging.OpFields(identity, "login")).Info("session_created")
	return handle, nil
}

// install replaces any prior resident handle for identity.
func (p *Pool) install(identity string, handle remote.Handle) {
	p.mu.Lock()
	p.handles[identity] = handle
	p.mu.Unlock()
}

// lockIdentity serializes acquisitions per identity without blocking other
// identities, mirroring the per-key discipline of the cache store.
func (p *Pool) lockIdentity(identity string) func() {
	p.mu.Lock()
	lock := p.locks[identity]
	if lock == nil {
		lock = &identityLock{}
		p.locks[identity] = lock
	}
	lock.refs++
	p.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		p.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(p.locks, identity)
		}
		p.mu.Unlock()
	}
}
