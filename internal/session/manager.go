// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accountd/pkg/errutil"
)

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 30 * time.Minute

// Options configures a Manager.
type Options struct {
	// TTL is how long a session lives after its last use.
	TTL time.Duration
	// Logger receives janitor and load diagnostics. Defaults to discard.
	Logger *slog.Logger
	// OnSweep, if set, is called with the number of sessions each sweep
	// removed.
	OnSweep func(removed int64)
	// Now overrides the clock.
	Now func() time.Time
}

// Manager loads, saves and expires sessions.
type Manager struct {
	store   Store
	ttl     time.Duration
	logger  *slog.Logger
	onSweep func(int64)
	now     func() time.Time
}

// NewManager creates a Manager over store.
func NewManager(store Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	if opts.TTL < 0 {
		return nil, oops.With("ttl", opts.TTL.String()).Errorf("session ttl must not be negative")
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:   store,
		ttl:     opts.TTL,
		logger:  opts.Logger,
		onSweep: opts.OnSweep,
		now:     opts.Now,
	}, nil
}

// TTL returns the idle lifetime of sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load returns the session identified by token. An empty, malformed,
// unknown or expired token yields a new empty session. Loading a live
// session refreshes its last-seen time and slides its expiry.
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" || !wellFormed(token) {
		return newSession(), nil
	}

	r, err := m.store.GetByTokenHash(ctx, HashToken(token))
	if errors.Is(err, ErrNotFound) {
		return newSession(), nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_LOAD_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	if !VerifyToken(token, r.TokenHash) {
		m.logger.WarnContext(ctx, "session store returned a record for another token",
			"session_id", r.ID.String())
		return newSession(), nil
	}

	now := m.now()
	if r.IsExpiredAt(now) {
		if err := m.store.Delete(ctx, r.ID); err != nil {
			errutil.LogErrorContext(ctx, m.logger, slog.LevelWarn, "failed to delete expired session", err)
		}
		return newSession(), nil
	}

	r.LastSeenAt = now
	r.ExpiresAt = now.Add(m.ttl)
	err = m.store.Update(ctx, r)
	if errors.Is(err, ErrNotFound) {
		// Removed by a concurrent request since the lookup.
		return newSession(), nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_LOAD_FAILED").
			With("operation", "touch session").
			With("session_id", r.ID.String()).
			Wrap(err)
	}
	return fromRecord(token, r), nil
}

// Save persists sess if it changed and returns the token the client
// should hold and when it expires. A new session with no values is not
// stored. A stored session left with no values is deleted, and the
// returned token is "".
func (m *Manager) Save(ctx context.Context, sess *Session) (token string, expiresAt time.Time, err error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := m.now()
	if !sess.dirty {
		if sess.record == nil {
			return "", time.Time{}, nil
		}
		return sess.token, sess.record.ExpiresAt, nil
	}

	data := make(map[string]json.RawMessage, len(sess.values))
	maps.Copy(data, sess.values)

	switch {
	case sess.record == nil && len(data) == 0:
		sess.dirty = false
		return "", time.Time{}, nil

	case sess.record == nil:
		return m.create(ctx, sess, data, now)

	case len(data) == 0:
		if err := m.store.Delete(ctx, sess.record.ID); err != nil {
			return "", time.Time{}, oops.Code("SESSION_SAVE_FAILED").
				With("operation", "delete empty session").
				With("session_id", sess.record.ID.String()).
				Wrap(err)
		}
		sess.record = nil
		sess.token = ""
		sess.dirty = false
		return "", time.Time{}, nil

	default:
		r := sess.record.clone()
		r.Data = data
		r.LastSeenAt = now
		r.ExpiresAt = now.Add(m.ttl)
		err := m.store.Update(ctx, r)
		if errors.Is(err, ErrNotFound) {
			// Removed by a concurrent request; store the values afresh.
			return m.create(ctx, sess, data, now)
		}
		if err != nil {
			return "", time.Time{}, oops.Code("SESSION_SAVE_FAILED").
				With("operation", "update session").
				With("session_id", r.ID.String()).
				Wrap(err)
		}
		sess.record = r
		sess.dirty = false
		return sess.token, r.ExpiresAt, nil
	}
}

// create stores data under a new token. sess.mu must be held.
func (m *Manager) create(ctx context.Context, sess *Session, data map[string]json.RawMessage, now time.Time) (string, time.Time, error) {
	token, hash, err := GenerateToken()
	if err != nil {
		return "", time.Time{}, err
	}
	r := &Record{
		ID:         ulid.Make(),
		TokenHash:  hash,
		Data:       data,
		ExpiresAt:  now.Add(m.ttl),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := m.store.Create(ctx, r); err != nil {
		return "", time.Time{}, oops.Code("SESSION_SAVE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}
	sess.record = r
	sess.token = token
	sess.dirty = false
	return token, r.ExpiresAt, nil
}

// Renew discards the stored form of sess while keeping its values, so the
// next Save issues a new token. Call it whenever the session gains
// privilege, such as on login.
func (m *Manager) Renew(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.record != nil {
		if err := m.store.Delete(ctx, sess.record.ID); err != nil {
			return oops.Code("SESSION_RENEW_FAILED").
				With("session_id", sess.record.ID.String()).
				Wrap(err)
		}
	}
	sess.record = nil
	sess.token = ""
	sess.dirty = true
	return nil
}

// Destroy deletes the stored form of sess and empties it.
func (m *Manager) Destroy(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.record != nil {
		if err := m.store.Delete(ctx, sess.record.ID); err != nil {
			return oops.Code("SESSION_DESTROY_FAILED").
				With("session_id", sess.record.ID.String()).
				Wrap(err)
		}
	}
	sess.record = nil
	sess.token = ""
	sess.values = make(map[string]json.RawMessage)
	sess.dirty = false
	return nil
}

// Sweep deletes every expired session and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	if m.onSweep != nil {
		m.onSweep(n)
	}
	return n, nil
}

// StartJanitor sweeps expired sessions every interval until ctx is
// cancelled. The returned channel is closed when the janitor has stopped.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.Sweep(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					errutil.LogErrorContext(ctx, m.logger, slog.LevelError, "session sweep failed", err)
					continue
				}
				if n > 0 {
					m.logger.DebugContext(ctx, "expired sessions removed", "count", n)
				}
			}
		}
	}()
	return done
}
