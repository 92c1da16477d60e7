// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session keeps admin sign-ins in Valkey, keyed by a random ID
// carried in an HttpOnly cookie. A Store is the one process-wide holder
// of authentication state; other components subscribe to its sign-in and
// sign-out events rather than polling.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName carries the session ID.
	CookieName = "ink_session"

	// DefaultTTL bounds a session's life from sign-in; it is not extended
	// by activity.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "session:"
	idBytes   = 32
)

// Data is the stored payload: who signed in and when.
type Data struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventKind names a session lifecycle change.
type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

// Event is delivered to subscribers after a sign-in or sign-out.
type Event struct {
	Kind   EventKind
	UserID uuid.UUID
	Email  string
	At     time.Time
}

type listener struct {
	id int
	fn func(Event)
}

// Store creates, resolves and destroys sessions.
type Store struct {
	kv     redis.Cmdable
	ttl    time.Duration
	secure bool
	now    func() time.Time

	mu        sync.Mutex
	listeners []listener
	seq       int
}

// NewStore returns a Store on kv. secure sets the cookie's Secure flag,
// which production deployments behind TLS want.
func NewStore(kv redis.Cmdable, secure bool) *Store {
	return &Store{kv: kv, ttl: DefaultTTL, secure: secure, now: time.Now}
}

// Subscribe registers fn for every later Event and returns a function that
// cancels the registration. fn runs on the request goroutine.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(e Event) {
	s.mu.Lock()
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()

	for _, l := range ls {
		l.fn(e)
	}
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// Create stores data under a fresh ID, sets the cookie and announces the
// sign-in. data.CreatedAt is overwritten.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := newID()
	if err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	data.CreatedAt = s.now().UTC()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session encode: %w", err)
	}
	if err := s.kv.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session save: %w", err)
	}

	http.SetCookie(w, s.cookie(id, int(s.ttl.Seconds())))
	s.notify(Event{Kind: SignedIn, UserID: data.UserID, Email: data.Email, At: data.CreatedAt})
	return id, nil
}

// Get resolves the request's session. A missing or malformed cookie and
// an expired session all yield (nil, nil).
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	id, ok := cookieID(r)
	if !ok {
		return nil, nil
	}
	raw, err := s.kv.Get(ctx, keyPrefix+id).Bytes()
	return decode(raw, err)
}

// Destroy deletes the request's session, expires the cookie and, when a
// live session was removed, announces the sign-out.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, ok := cookieID(r)
	if !ok {
		return nil
	}

	raw, err := s.kv.GetDel(ctx, keyPrefix+id).Bytes()
	data, err := decode(raw, err)
	if err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}

	http.SetCookie(w, s.cookie("", -1))
	if data != nil {
		s.notify(Event{Kind: SignedOut, UserID: data.UserID, Email: data.Email, At: s.now().UTC()})
	}
	return nil
}

func decode(raw []byte, err error) (*Data, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &d, nil
}

// cookieID returns the session ID when the cookie holds one of the right
// shape, so junk values never reach Valkey.
func cookieID(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || len(c.Value) != 2*idBytes {
		return "", false
	}
	if _, err := hex.DecodeString(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
