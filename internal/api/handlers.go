// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/starpath-web/internal/achievements"
	"github.com/tahcohcat/starpath-web/internal/audio"
	"github.com/tahcohcat/starpath-web/internal/auth"
	"github.com/tahcohcat/starpath-web/internal/content"
	"github.com/tahcohcat/starpath-web/internal/logger"
	"github.com/tahcohcat/starpath-web/internal/models"
	"github.com/tahcohcat/starpath-web/internal/services"
	"github.com/tahcohcat/starpath-web/internal/websocket"
)

const (
	defaultRecentLimit = 10
	defaultSearchLimit = 5
)

// Handler serves the activity, account and content endpoints. One instance
// is shared by every request.
type Handler struct {
	auth    *auth.Manager
	users   *services.UserService
	catalog *content.Catalog
	audio   *audio.Service
	engine  *achievements.Engine
	locker  *services.KeyedLocker
	hub     *websocket.Hub
}

type Deps struct {
	Auth    *auth.Manager
	Users   *services.UserService
	Catalog *content.Catalog
	Audio   *audio.Service
	Engine  *achievements.Engine
	Hub     *websocket.Hub
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		auth:    d.Auth,
		users:   d.Users,
		catalog: d.Catalog,
		audio:   d.Audio,
		engine:  d.Engine,
		locker:  services.NewKeyedLocker(),
		hub:     d.Hub,
	}
	if h.engine == nil {
		h.engine = achievements.NewEngine()
	}
	if h.catalog == nil {
		h.catalog = content.New(nil)
	}
	return h
}

// RegisterRoutes mounts every endpoint on r. The client middleware must run
// before any of them.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.Use(h.auth.Middleware)

	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/profile", h.Profile).Methods("GET")
	api.HandleFunc("/activity/lesson", h.TrackLesson).Methods("POST")
	api.HandleFunc("/activity/quiz", h.TrackQuiz).Methods("POST")
	api.HandleFunc("/activity/game", h.TrackGame).Methods("POST")
	api.HandleFunc("/activity/achievement", h.AwardAchievement).Methods("POST")
	api.HandleFunc("/activity/recent", h.RecentActivities).Methods("GET")
	api.HandleFunc("/stats", h.Stats).Methods("GET")
	api.HandleFunc("/lessons", h.ListLessons).Methods("GET")
	api.HandleFunc("/lessons/search", h.SearchLessons).Methods("GET")
	api.HandleFunc("/credits", h.Credits).Methods("GET")
	api.HandleFunc("/audio/speak", h.Speak).Methods("POST")

	if h.hub != nil {
		r.HandleFunc("/ws", h.hub.Handler(h.studentID)).Methods("GET")
	}
}

// activities builds the per-request services over the caller's client store.
func (h *Handler) activities(r *http.Request) (*services.ActivityService, *services.StatsService) {
	store := h.auth.Store(r)
	session := auth.NewStoreSession(store)

	opts := []services.ActivityOption{
		services.WithEngine(h.engine),
		services.WithLocker(h.locker),
	}
	if h.hub != nil {
		opts = append(opts, services.WithNotifier(h.hub))
	}
	return services.NewActivityService(store, session, opts...), services.NewStatsService(store, session)
}

// refreshStats rewrites the stats cache after a tracked event.
func (h *Handler) refreshStats(r *http.Request, stats *services.StatsService) *models.StudentStats {
	unlock := h.locker.Lock(h.auth.Store(r).Namespace())
	defer unlock()

	out, err := stats.Refresh(r.Context())
	if err != nil {
		logger.New().WithError(err).Warn("stats refresh failed")
		return nil
	}
	return out
}

func (h *Handler) studentID(r *http.Request) (string, bool) {
	user, ok := h.auth.Session(r).CurrentUser(r.Context())
	if !ok {
		return "", false
	}
	return user.StudentID(), true
}

func decode(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.New().WithError(err).Warn("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "progress not saved: sign in required")
	case errors.Is(err, models.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		logger.New().WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
