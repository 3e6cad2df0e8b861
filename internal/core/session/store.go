// Package session holds the session state machine of the console: the Store
// that owns the current identity and the Gate that admits role-restricted views.
//
// A Store is built once per process lifetime (one page load in the web console,
// one invocation of the CLI) and Initialize is called before any view trusts it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brewline/console/internal/core/credential"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
)

// Listener receives every state the Store emits.
type Listener func(domain.Session)

// Store owns the Session and its only mutation path.
type Store struct {
	creds   ports.CredentialStore
	decoder *credential.Decoder
	audit   ports.AuditSink
	log     zerolog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	state domain.Session

	initOnce sync.Once

	subMu     sync.Mutex
	listeners map[uint64]Listener
	order     []uint64
	nextID    uint64
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used to check credential expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithAudit records discarded credentials on sink. A successful restore is not
// an audit event: the web console restores once per request.
func WithAudit(sink ports.AuditSink) Option {
	return func(s *Store) { s.audit = sink }
}

// NewStore returns an uninitialized Store persisting through creds.
func NewStore(creds ports.CredentialStore, decoder *credential.Decoder, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		creds:     creds,
		decoder:   decoder,
		log:       log,
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers l for every future emission and returns a func that
// removes it. Listeners run in registration order, outside the state lock.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// SetUser replaces the user. The caller guarantees a well-formed User.
func (s *Store) SetUser(user *domain.User) {
	s.mutate(func(st *domain.Session) {
		st.User = user.Clone()
	})
}

// SetToken persists credential and marks the session authenticated.
// Nothing changes in memory when persistence fails.
func (s *Store) SetToken(ctx context.Context, credential string) error {
	if err := s.creds.Save(ctx, credential); err != nil {
		return err
	}
	s.mutate(func(st *domain.Session) {
		st.Credential = credential
		st.IsAuthenticated = true
	})
	return nil
}

// Establish persists credential and installs user in a single emission, so no
// listener observes an authenticated session without its user.
func (s *Store) Establish(ctx context.Context, credential string, user *domain.User) error {
	if err := s.creds.Save(ctx, credential); err != nil {
		return err
	}
	s.mutate(func(st *domain.Session) {
		st.Credential = credential
		st.User = user.Clone()
		st.IsAuthenticated = true
	})
	return nil
}

// Logout clears the session and removes the durable credential. The in-memory
// state is cleared even when removal fails; that error is returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mutate(func(st *domain.Session) {
		st.User = nil
		st.Credential = ""
		st.IsAuthenticated = false
	})
	return s.creds.Clear(ctx)
}

// Initialize restores the session from durable storage. Only the first call
// has any effect. It never fails: unreadable storage counts as no credential
// and a credential that yields no usable identity is discarded.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() { s.initialize(ctx) })
}

func (s *Store) initialize(ctx context.Context) {
	raw, err := s.creds.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoCredential) {
			s.log.Warn().Err(err).Msg("credential store unreadable, starting signed out")
		}
		s.finishInit(nil, "")
		return
	}

	user, reason := s.restore(raw)
	if user == nil {
		s.log.Info().Str("reason", reason).Msg("discarding stored credential")
		if err := s.creds.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to remove discarded credential")
		}
		s.record(domain.SessionEvent{Kind: domain.EventSessionDiscarded, Reason: reason})
		s.finishInit(nil, "")
		return
	}

	s.log.Debug().Str("subject", user.ID).Str("role", string(user.Role)).Msg("session restored")
	s.finishInit(user, raw)
}

// restore projects raw into a User, or explains why it cannot.
func (s *Store) restore(raw string) (*domain.User, string) {
	claims, err := s.decoder.Decode(raw)
	if err != nil {
		return nil, "undecodable"
	}
	user, err := claims.Identity("", s.now())
	if err != nil {
		return nil, err.Error()
	}
	return user, ""
}

func (s *Store) finishInit(user *domain.User, raw string) {
	s.mutate(func(st *domain.Session) {
		st.User = user
		st.Credential = raw
		st.IsAuthenticated = user != nil
		st.IsInitialized = true
	})
}

func (s *Store) record(ev domain.SessionEvent) {
	if s.audit == nil {
		return
	}
	ev.OccurredAt = s.now().UTC()
	s.audit.Record(ev)
}

// mutate applies fn under the state lock and then emits the resulting state.
func (s *Store) mutate(fn func(*domain.Session)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.Revision++
	snap := s.state.Clone()
	s.mu.Unlock()

	s.emit(snap)
}

func (s *Store) emit(snap domain.Session) {
	s.subMu.Lock()
	ls := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		ls = append(ls, s.listeners[id])
	}
	s.subMu.Unlock()

	for _, l := range ls {
		l(snap.Clone())
	}
}
