package session

import (
	"context"
	"sync"

	"github.com/golang/glog"
	"github.com/krancour/cloudbalance"
	"github.com/pkg/errors"
)

// ErrStaleResponse is returned when a response arrives after a more recently
// issued request has already begun. Such responses are discarded.
var ErrStaleResponse = errors.New(
	"response discarded because a more recent request superseded it",
)

// Gateway is the subset of cloudbalance.AuthClient a Store drives.
type Gateway interface {
	Login(context.Context, cloudbalance.Credentials) (cloudbalance.SessionGrant, error)
	Logout(ctx context.Context, token string) error
	Impersonate(
		ctx context.Context,
		targetUserID int64,
	) (cloudbalance.SessionGrant, error)
	RevertImpersonation(context.Context) (cloudbalance.SessionGrant, error)
}

// GatewayFactory builds a Gateway that draws bearer tokens from the given
// source. A Store passes itself, so every request carries whatever token is
// current at the moment the request is made.
type GatewayFactory func(tokens cloudbalance.TokenSource) Gateway

// Store is the single authority over the session. It is safe for concurrent
// use. Every transition is mirrored to Storage while the store's lock is held,
// so storage writes happen in the same order as transitions.
type Store struct {
	storage Storage
	gateway Gateway

	mu               sync.Mutex
	state            State
	generation       uint64
	subscribers      map[uint64]chan State
	nextSubscriberID uint64
}

func NewStore(storage Storage, newGateway GatewayFactory) *Store {
	s := &Store{
		storage:     storage,
		subscribers: map[uint64]chan State{},
	}
	s.gateway = newGateway(s)
	return s
}

// Connect builds a Store and a Client that share the Store's token.
func Connect(
	apiAddress string,
	allowInsecure bool,
	storage Storage,
) (*Store, cloudbalance.Client) {
	var client cloudbalance.Client
	store := NewStore(
		storage,
		func(tokens cloudbalance.TokenSource) Gateway {
			client = cloudbalance.NewClient(apiAddress, tokens, allowInsecure)
			return client.Auth()
		},
	)
	return store, client
}

// Token returns the current session token. It implements
// cloudbalance.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionToken
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Rehydrate replaces the in-memory state with whatever is in storage. A stored
// session that cannot be read or that violates the session invariants is
// discarded and storage is cleared.
func (s *Store) Rehydrate(ctx context.Context) error {
	gen := s.begin()
	snap, err := s.storage.Load(ctx)
	if err == nil {
		err = snap.Consistent()
	}
	if err != nil {
		glog.Warningf("discarding stored session: %s", err)
		snap = Snapshot{}
	}
	return s.commit(ctx, gen, func(State) State {
		return stateFromSnapshot(snap)
	})
}

// Login exchanges credentials for a session. Any existing session, including
// an impersonation, is replaced wholesale. A failed login leaves the prior
// session untouched apart from the error.
func (s *Store) Login(
	ctx context.Context,
	credentials cloudbalance.Credentials,
) error {
	gen := s.begin()
	grant, err := s.gateway.Login(ctx, credentials)
	if err != nil {
		return s.fail(ctx, gen, err, false)
	}
	glog.V(2).Infof(
		"logged in as %s (%s)",
		grant.Username,
		grant.Role.Short(),
	)
	return s.commit(ctx, gen, func(State) State {
		return stateFromGrant(grant)
	})
}

// Logout clears the session locally, then asks the API server to invalidate
// the token that was current. The local session is cleared regardless of
// what the API server says.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.state.SessionToken
	s.generation++
	err := s.apply(ctx, State{}, true)
	s.mu.Unlock()
	if token != "" {
		if lerr := s.gateway.Logout(ctx, token); lerr != nil {
			glog.Warningf(
				"error invalidating session token %s; session was cleared "+
					"locally anyway: %s",
				redact(token),
				lerr,
			)
		}
	}
	glog.V(2).Info("logged out")
	return err
}

// Impersonate swaps the current session for one belonging to the target user,
// keeping the current token in reserve. Callers are responsible for checking
// that the current user may impersonate. An authentication or authorization
// failure means the current token is dead, so the session is reset.
func (s *Store) Impersonate(ctx context.Context, targetUserID int64) error {
	gen := s.begin()
	grant, err := s.gateway.Impersonate(ctx, targetUserID)
	if err != nil {
		return s.fail(ctx, gen, err, true)
	}
	glog.V(2).Infof(
		"impersonating %s (%s)",
		grant.Username,
		grant.Role.Short(),
	)
	return s.commit(ctx, gen, func(prev State) State {
		next := stateFromGrant(grant)
		next.IsImpersonating = true
		next.OriginalAdminSessionToken = prev.SessionToken
		if prev.IsImpersonating {
			next.OriginalAdminSessionToken = prev.OriginalAdminSessionToken
		}
		return next
	})
}

// RevertImpersonation ends an impersonation. Whatever token the API server
// issues for the original administrator is adopted; the token held in reserve
// is only ever discarded, never replayed.
func (s *Store) RevertImpersonation(ctx context.Context) error {
	gen := s.begin()
	grant, err := s.gateway.RevertImpersonation(ctx)
	if err != nil {
		return s.fail(ctx, gen, err, true)
	}
	glog.V(2).Infof("reverted to %s (%s)", grant.Username, grant.Role.Short())
	return s.commit(ctx, gen, func(State) State {
		return stateFromGrant(grant)
	})
}

// Reset clears the session locally without contacting the API server. It is
// meant for callers that discover the API server has stopped honoring the
// current token.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	glog.V(2).Info("session reset")
	return s.apply(ctx, State{}, true)
}

// ClearError clears the error, if any.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Error == "" {
		return
	}
	next := s.state.clone()
	next.Error = ""
	s.set(next)
}

// RecordError surfaces err through State.Error without any other change.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	next.Error = cloudbalance.Message(err)
	s.set(next)
}

// Subscribe returns a channel that receives a copy of the state after every
// change, and a function that ends the subscription. The channel holds only
// the latest state; a slow reader skips intermediate states rather than
// blocking the store.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubscriberID
	s.nextSubscriberID++
	ch := make(chan State, 1)
	s.subscribers[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

// begin stamps a new request, marks the store as loading and clears any prior
// error. It returns the request's generation.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	next := s.state.clone()
	next.IsLoading = true
	next.Error = ""
	s.set(next)
	return s.generation
}

// commit applies a successful response if it belongs to the latest request.
func (s *Store) commit(
	ctx context.Context,
	gen uint64,
	transition func(prev State) State,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		glog.V(2).Infof(
			"discarding response to request %d; latest is %d",
			gen,
			s.generation,
		)
		return ErrStaleResponse
	}
	next := transition(s.state.clone())
	next.IsLoading = false
	next.Error = ""
	return s.apply(ctx, next, true)
}

// fail records a failed request if it belongs to the latest request. When
// resetOnAuthError is set and the failure shows the token was rejected, the
// session is cleared.
func (s *Store) fail(
	ctx context.Context,
	gen uint64,
	err error,
	resetOnAuthError bool,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		glog.V(2).Infof(
			"ignoring failure of request %d; latest is %d: %s",
			gen,
			s.generation,
			err,
		)
		return err
	}
	msg := cloudbalance.Message(err)
	if resetOnAuthError && cloudbalance.IsAuthError(err) {
		glog.Warningf("API server rejected session; clearing it: %s", msg)
		s.generation++
		if perr := s.apply(ctx, State{Error: msg}, true); perr != nil {
			return perr
		}
		return err
	}
	next := s.state.clone()
	next.IsLoading = false
	next.Error = msg
	s.set(next)
	return err
}

// apply installs a new state and, if persist is set, mirrors it to storage.
// The in-memory state is authoritative even if the storage write fails; the
// failure is then recorded in State.Error. It must be called with the lock
// held.
func (s *Store) apply(ctx context.Context, next State, persist bool) error {
	s.set(next)
	if !persist {
		return nil
	}
	var err error
	if next.SessionToken == "" {
		err = s.storage.Clear(ctx)
	} else {
		err = s.storage.Save(ctx, next.snapshot())
	}
	if err != nil {
		glog.Warningf("error persisting session: %s", err)
		err = errors.Wrap(err, "error persisting session")
		failed := s.state.clone()
		failed.Error = err.Error()
		s.set(failed)
		return err
	}
	return nil
}

// set must be called with the lock held.
func (s *Store) set(next State) {
	s.state = next
	for _, ch := range s.subscribers {
		state := next.clone()
		select {
		case ch <- state:
		default:
			// Replace the unread state with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

func redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:8] + "****"
}
