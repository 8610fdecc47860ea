package api

import (
	"net/http"

	"github.com/tahcohcat/starpath-web/internal/models"
	"github.com/tahcohcat/starpath-web/internal/scoring"
)

type LessonRequest struct {
	Subject          string          `json:"subject"`
	LessonName       string          `json:"lesson_name"`
	TimeSpentMinutes int             `json:"time_spent_minutes"`
	Metadata         models.Metadata `json:"metadata"`
}

type QuizRequest struct {
	Subject          string          `json:"subject"`
	QuizName         string          `json:"quiz_name"`
	Score            float64         `json:"score"`
	TotalQuestions   int             `json:"total_questions"`
	TimeSpentMinutes int             `json:"time_spent_minutes"`
	Metadata         models.Metadata `json:"metadata"`
}

type GameRequest struct {
	GameName         string          `json:"game_name"`
	Score            float64         `json:"score"`
	TimeSpentMinutes int             `json:"time_spent_minutes"`
	Metadata         models.Metadata `json:"metadata"`
}

type AchievementRequest struct {
	Subject     string `json:"subject"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Stars       int    `json:"stars"`
}

type TrackResponse struct {
	Record *models.ActivityRecord `json:"record"`
	Stats  *models.StudentStats   `json:"stats,omitempty"`
}

// POST /api/v1/activity/lesson
func (h *Handler) TrackLesson(w http.ResponseWriter, r *http.Request) {
	var req LessonRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// catalog difficulty applies when the client sent none
	if req.Metadata.String("difficulty") == "" {
		if item, ok := h.catalog.Lookup(req.LessonName); ok && item.Difficulty != "" {
			if req.Metadata == nil {
				req.Metadata = models.Metadata{}
			}
			req.Metadata["difficulty"] = item.Difficulty
		}
	}

	svc, stats := h.activities(r)
	rec, err := svc.TrackLessonCompletion(r.Context(), req.Subject, req.LessonName, req.TimeSpentMinutes, req.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TrackResponse{Record: rec, Stats: h.refreshStats(r, stats)})
}

// POST /api/v1/activity/quiz
func (h *Handler) TrackQuiz(w http.ResponseWriter, r *http.Request) {
	var req QuizRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !scoring.ValidQuizScore(req.Score) {
		writeError(w, http.StatusBadRequest, "score must be between 0 and 100")
		return
	}

	svc, stats := h.activities(r)
	rec, err := svc.TrackQuizCompletion(r.Context(), req.Subject, req.QuizName, req.Score, req.TotalQuestions, req.TimeSpentMinutes, req.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TrackResponse{Record: rec, Stats: h.refreshStats(r, stats)})
}

// POST /api/v1/activity/game
func (h *Handler) TrackGame(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc, stats := h.activities(r)
	rec, err := svc.TrackGameCompletion(r.Context(), req.GameName, req.Score, req.TimeSpentMinutes, req.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TrackResponse{Record: rec, Stats: h.refreshStats(r, stats)})
}

// POST /api/v1/activity/achievement
func (h *Handler) AwardAchievement(w http.ResponseWriter, r *http.Request) {
	var req AchievementRequest
	if err := decode(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc, stats := h.activities(r)
	rec, err := svc.AwardAchievement(r.Context(), req.Subject, req.Title, req.Description, req.Icon, req.Stars)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"awarded": false})
		return
	}
	writeJSON(w, http.StatusCreated, TrackResponse{Record: rec, Stats: h.refreshStats(r, stats)})
}

// GET /api/v1/activity/recent?limit=N
func (h *Handler) RecentActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultRecentLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a number")
		return
	}

	svc, _ := h.activities(r)
	records, err := svc.GetRecentActivities(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activities": records})
}

// GET /api/v1/stats returns the cached aggregate, or 404 before the first
// tracked event.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.studentID(r); !ok {
		writeServiceError(w, errNotSignedIn)
		return
	}

	svc, _ := h.activities(r)
	stats, ok := svc.GetStudentStats(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no stats yet")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
