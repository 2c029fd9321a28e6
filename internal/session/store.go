package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gobarber/client/internal/domain"
	"gobarber/client/internal/store"
)

const DefaultNamespace = "@GoBarber"

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	CreateSession(ctx context.Context, creds domain.Credentials) (domain.Session, error)
}

// Authorizer is the request client whose bearer credential the store keeps in
// step with the session.
type Authorizer interface {
	SetAuthorization(token string)
	ClearAuthorization()
}

type Options struct {
	// Namespace prefixes both persisted keys. Defaults to DefaultNamespace.
	Namespace string
	Logger    *slog.Logger
}

// Store owns the signed-in identity. Mutations are serialized and write the
// backend before memory, so a failed write leaves the previous state intact.
type Store struct {
	kv     store.KeyValue
	auth   Authenticator
	authz  Authorizer
	logger *slog.Logger

	tokenKey string
	userKey  string

	writeMu sync.Mutex

	mu      sync.RWMutex
	current domain.Session
}

// Open restores any persisted session and, when one is found, authorizes
// authz with its token before returning.
func Open(ctx context.Context, kv store.KeyValue, auth Authenticator, authz Authorizer, opts Options) (*Store, error) {
	ns := strings.TrimSpace(opts.Namespace)
	if ns == "" {
		ns = DefaultNamespace
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		kv:       kv,
		auth:     auth,
		authz:    authz,
		logger:   logger.With(slog.String("component", "session")),
		tokenKey: ns + ":token",
		userKey:  ns + ":user",
	}
	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) restore(ctx context.Context) error {
	entries, err := s.kv.GetMany(ctx, s.tokenKey, s.userKey)
	if err != nil {
		return fmt.Errorf("session: read persisted session: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	token, hasToken := entries[s.tokenKey]
	rawUser, hasUser := entries[s.userKey]

	var sess domain.Session
	if hasToken && hasUser {
		var u domain.User
		if err := json.Unmarshal([]byte(rawUser), &u); err == nil {
			sess = domain.Session{Token: token, User: u}
		}
	}

	if !sess.Valid() {
		s.logger.Warn("discarding incomplete persisted session",
			"has_token", hasToken,
			"has_user", hasUser,
		)
		if err := s.kv.Delete(ctx, s.tokenKey, s.userKey); err != nil {
			s.logger.Warn("failed to delete incomplete persisted session", slog.Any("err", err))
		}
		return nil
	}

	s.authz.SetAuthorization(sess.Token)
	s.setCurrent(sess)
	s.logger.Info("session restored", "user_id", sess.User.ID)
	return nil
}

// SignIn authenticates and replaces the current session. Any failure leaves
// the previous session, persisted copy and authorization untouched.
func (s *Store) SignIn(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess, err := s.auth.CreateSession(ctx, creds)
	if err != nil {
		s.logger.Info("sign in rejected", slog.Any("err", err))
		return domain.Session{}, &AuthenticationError{Err: err}
	}
	if !sess.Valid() {
		s.logger.Warn("sign in response missing token or user")
		return domain.Session{}, &AuthenticationError{Err: ErrIncompleteSession}
	}

	if err := s.persist(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	s.authz.SetAuthorization(sess.Token)
	s.setCurrent(sess)

	s.logger.Info("signed in", "user_id", sess.User.ID)
	return sess, nil
}

// SignOut clears the session. Signing out while signed out succeeds.
func (s *Store) SignOut(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.kv.Delete(ctx, s.tokenKey, s.userKey); err != nil {
		return fmt.Errorf("session: delete persisted session: %w", err)
	}
	s.authz.ClearAuthorization()

	prev := s.setCurrent(domain.Session{})
	if prev.Valid() {
		s.logger.Info("signed out", "user_id", prev.User.ID)
	}
	return nil
}

// UpdateUser merges patch over the current user and keeps the token.
func (s *Store) UpdateUser(ctx context.Context, patch domain.UserPatch) (domain.User, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, ok := s.Current()
	if !ok {
		return domain.User{}, ErrNotAuthenticated
	}

	next := domain.Session{Token: cur.Token, User: cur.User.Merge(patch)}
	if !next.Valid() {
		s.logger.Warn("rejecting user update without an id", "user_id", cur.User.ID)
		return domain.User{}, ErrIncompleteSession
	}
	if err := s.persist(ctx, next); err != nil {
		return domain.User{}, err
	}
	s.setCurrent(next)

	s.logger.Debug("user updated", "user_id", next.User.ID)
	return next.User, nil
}

func (s *Store) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current.Valid()
}

func (s *Store) User() (domain.User, bool) {
	sess, ok := s.Current()
	return sess.User, ok
}

func (s *Store) Authenticated() bool {
	_, ok := s.Current()
	return ok
}

func (s *Store) persist(ctx context.Context, sess domain.Session) error {
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	err = s.kv.SetMany(ctx, map[string]string{
		s.tokenKey: sess.Token,
		s.userKey:  string(rawUser),
	})
	if err != nil {
		return fmt.Errorf("session: persist session: %w", err)
	}
	return nil
}

func (s *Store) setCurrent(sess domain.Session) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = sess
	return prev
}
