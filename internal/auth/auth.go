package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/tahcohcat/starpath-web/internal/logger"
	"github.com/tahcohcat/starpath-web/internal/models"
	"github.com/tahcohcat/starpath-web/internal/storage"
)

const (
	sessionName = "starpath-session"
	clientIDKey = "client_id"
)

type ctxKey struct{}

// Manager ties a browser to its client store through a signed cookie.
type Manager struct {
	cookies    *sessions.CookieStore
	backend    storage.Backend
	sessionTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, backend storage.Backend, sessionTTL time.Duration, secureCookies bool) *Manager {
	cookies := sessions.NewCookieStore([]byte(secret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{
		cookies:    cookies,
		backend:    backend,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ClientID returns the browser's client id, issuing one on first visit.
func (m *Manager) ClientID(w http.ResponseWriter, r *http.Request) (string, error) {
	// a cookie signed with an old secret decodes with an error but still
	// yields a fresh session, so the error is not fatal
	session, _ := m.cookies.Get(r, sessionName)
	if id, ok := session.Values[clientIDKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	session.Values[clientIDKey] = id
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session cookie: %w", err)
	}
	return id, nil
}

// Middleware attaches the client id to every request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.ClientID(w, r)
		if err != nil {
			logger.New().WithError(err).Error("client session unavailable")
			http.Error(w, "Session unavailable", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Store is the client store of the request's browser.
func (m *Manager) Store(r *http.Request) *storage.Store {
	return storage.ForClient(m.backend, ClientIDFromContext(r.Context()))
}

// Session is the session state of the request's browser.
func (m *Manager) Session(r *http.Request) *StoreSession {
	return NewStoreSession(m.Store(r))
}

// Login writes the signed-in student's user, profile and session keys.
func (m *Manager) Login(ctx context.Context, store *storage.Store, user *models.User) models.AuthSession {
	issued := m.now()
	sess := models.AuthSession{
		StudentID: user.StudentID(),
		IssuedAt:  issued,
	}
	if m.sessionTTL > 0 {
		sess.ExpiresAt = issued.Add(m.sessionTTL)
	}

	store.Set(ctx, storage.KeyAuthUser, user)
	store.Set(ctx, storage.KeyAuthProfile, models.Profile{
		StudentID:   user.StudentID(),
		DisplayName: user.DisplayName,
		GradeLevel:  user.GradeLevel,
	})
	store.Set(ctx, storage.KeyAuthSession, sess)
	return sess
}

// Logout forgets the signed-in student and their stats cache. Activity
// history stays on the client.
func (m *Manager) Logout(ctx context.Context, store *storage.Store) {
	store.Remove(ctx, storage.KeyAuthUser)
	store.Remove(ctx, storage.KeyAuthProfile)
	store.Remove(ctx, storage.KeyAuthSession)
	store.Remove(ctx, storage.KeyStudentStats)
}

// StoreSession reads the signed-in student from a client store.
type StoreSession struct {
	store *storage.Store
	now   func() time.Time
}

func NewStoreSession(store *storage.Store) *StoreSession {
	return &StoreSession{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *StoreSession) CurrentUser(ctx context.Context) (*models.User, bool) {
	var user models.User
	if !s.store.Get(ctx, storage.KeyAuthUser, &user) || user.StudentID() == "" {
		return nil, false
	}

	var sess models.AuthSession
	if s.store.Get(ctx, storage.KeyAuthSession, &sess) && sess.Expired(s.now()) {
		return nil, false
	}
	return &user, true
}

// Profile returns the cached profile of the signed-in student.
func (s *StoreSession) Profile(ctx context.Context) (*models.Profile, bool) {
	if _, ok := s.CurrentUser(ctx); !ok {
		return nil, false
	}
	var profile models.Profile
	if !s.store.Get(ctx, storage.KeyAuthProfile, &profile) {
		return nil, false
	}
	return &profile, true
}
