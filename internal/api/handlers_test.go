package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tahcohcat/starpath-web/internal/audio"
	"github.com/tahcohcat/starpath-web/internal/auth"
	"github.com/tahcohcat/starpath-web/internal/content"
	"github.com/tahcohcat/starpath-web/internal/database"
	"github.com/tahcohcat/starpath-web/internal/logger"
	"github.com/tahcohcat/starpath-web/internal/models"
	"github.com/tahcohcat/starpath-web/internal/services"
	"github.com/tahcohcat/starpath-web/internal/storage"
)

type echoSynth struct{}

func (echoSynth) Synthesize(_ context.Context, text, _ string, _ audio.Voice) ([]byte, error) {
	return []byte("ID3" + text), nil
}

func (echoSynth) Name() string { return "echo" }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := content.New([]content.Item{
		{ID: "add-1", Title: "Basic Addition", Subject: "Math", Kind: content.KindLesson, Difficulty: "hard",
			Credits: []content.Credit{{ImagePath: "img/apples.png", Attribution: "Apples by Ana"}}},
		{ID: "read-1", Title: "Reading Rockets", Subject: "English", Kind: content.KindLesson, Difficulty: "easy"},
	})

	h := NewHandler(Deps{
		Auth:    auth.NewManager("test-secret", storage.NewMemory(), time.Hour, false),
		Users:   services.NewUserService(db),
		Catalog: catalog,
		Audio:   audio.NewService(echoSynth{}, ""),
	})
	r := mux.NewRouter()
	RegisterRoutes(r, h)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type browser struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, srv: srv, client: &http.Client{Jar: jar}}
}

func (b *browser) do(method, path string, body interface{}, out interface{}) int {
	b.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(b.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, b.srv.URL+path, &buf)
	require.NoError(b.t, err)

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (b *browser) register(username string) models.Profile {
	var p models.Profile
	code := b.do("POST", "/register", models.CreateUserRequest{Username: username, Password: "secret123", DisplayName: username, GradeLevel: 2}, &p)
	require.Equal(b.t, http.StatusCreated, code)
	return p
}

func TestSignedOutProgressIsRejected(t *testing.T) {
	b := newBrowser(t, newServer(t))

	req, err := http.NewRequest("POST", b.srv.URL+"/api/v1/activity/lesson", bytes.NewBufferString(`{"subject":"Math","lesson_name":"Basic Addition"}`))
	require.NoError(t, err)
	resp, err := b.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "progress not saved: sign in required", body["error"])

	assert.Equal(t, http.StatusUnauthorized, b.do("GET", "/api/v1/activity/recent", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, b.do("GET", "/api/v1/stats", nil, nil))
}

func TestLessonFlow(t *testing.T) {
	b := newBrowser(t, newServer(t))
	profile := b.register("maya")
	assert.NotEmpty(t, profile.StudentID)

	assert.Equal(t, http.StatusNotFound, b.do("GET", "/api/v1/stats", nil, nil))

	var tracked TrackResponse
	code := b.do("POST", "/api/v1/activity/lesson", LessonRequest{Subject: "Math", LessonName: "Basic Addition", TimeSpentMinutes: 8}, &tracked)
	require.Equal(t, http.StatusCreated, code)
	// catalog says hard: 10 + 5 hard + 5 fast
	assert.Equal(t, 20, tracked.Record.StarsEarned)
	assert.Equal(t, "hard", tracked.Record.Metadata.String("difficulty"))
	require.NotNil(t, tracked.Stats)
	assert.Equal(t, 45, tracked.Stats.TotalStars, "lesson plus Math Beginner")
	assert.Equal(t, 1, tracked.Stats.AchievementsEarned)

	var recent struct {
		Activities []models.ActivityRecord `json:"activities"`
	}
	require.Equal(t, http.StatusOK, b.do("GET", "/api/v1/activity/recent?limit=5", nil, &recent))
	require.Len(t, recent.Activities, 2)
	titles := []string{recent.Activities[0].LessonName, recent.Activities[1].LessonName}
	assert.ElementsMatch(t, []string{"Basic Addition", "Math Beginner"}, titles)

	var stats models.StudentStats
	require.Equal(t, http.StatusOK, b.do("GET", "/api/v1/stats", nil, &stats))
	assert.Equal(t, 45, stats.TotalStars)
	assert.Equal(t, 1, stats.Level)
}

func TestQuizGameAndAchievement(t *testing.T) {
	b := newBrowser(t, newServer(t))
	b.register("leo")

	var quiz TrackResponse
	require.Equal(t, http.StatusCreated, b.do("POST", "/api/v1/activity/quiz", QuizRequest{Subject: "Science", QuizName: "Planets", Score: 100, TotalQuestions: 10, TimeSpentMinutes: 4}, &quiz))
	assert.Equal(t, 25, quiz.Record.StarsEarned)

	var game TrackResponse
	require.Equal(t, http.StatusCreated, b.do("POST", "/api/v1/activity/game", GameRequest{GameName: "Number Hop", Score: 800, TimeSpentMinutes: 3}, &game))
	assert.Equal(t, "Math", game.Record.Subject)
	assert.Equal(t, 11, game.Record.StarsEarned)

	award := AchievementRequest{Subject: "Art", Title: "Creative Spark", Description: "Drew a picture", Icon: "🎨", Stars: 30}
	var first TrackResponse
	require.Equal(t, http.StatusCreated, b.do("POST", "/api/v1/activity/achievement", award, &first))
	assert.Equal(t, models.ActivityAchievementEarned, first.Record.ActivityType)

	var again map[string]interface{}
	require.Equal(t, http.StatusOK, b.do("POST", "/api/v1/activity/achievement", award, &again))
	assert.Equal(t, false, again["awarded"])
}

func TestLogoutKeepsHistoryAndLoginRestoresIt(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)
	b.register("ana")
	require.Equal(t, http.StatusCreated, b.do("POST", "/api/v1/activity/lesson", LessonRequest{Subject: "English", LessonName: "Reading Rockets", TimeSpentMinutes: 30}, nil))

	require.Equal(t, http.StatusNoContent, b.do("POST", "/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, b.do("GET", "/api/v1/profile", nil, nil))

	assert.Equal(t, http.StatusUnauthorized, b.do("POST", "/login", models.LoginRequest{Username: "ana", Password: "wrong"}, nil))
	require.Equal(t, http.StatusOK, b.do("POST", "/login", models.LoginRequest{Username: "ana", Password: "secret123"}, nil))

	var recent struct {
		Activities []models.ActivityRecord `json:"activities"`
	}
	require.Equal(t, http.StatusOK, b.do("GET", "/api/v1/activity/recent", nil, &recent))
	assert.Len(t, recent.Activities, 2)
}

func TestStudentsOnDifferentBrowsersAreIsolated(t *testing.T) {
	srv := newServer(t)
	maya := newBrowser(t, srv)
	leo := newBrowser(t, srv)
	maya.register("maya")
	leo.register("leo")

	require.Equal(t, http.StatusCreated, maya.do("POST", "/api/v1/activity/lesson", LessonRequest{Subject: "Math", LessonName: "Basic Addition"}, nil))

	var recent struct {
		Activities []models.ActivityRecord `json:"activities"`
	}
	require.Equal(t, http.StatusOK, leo.do("GET", "/api/v1/activity/recent", nil, &recent))
	assert.Empty(t, recent.Activities)
}

func TestStatsAreNotSharedOnOneBrowser(t *testing.T) {
	b := newBrowser(t, newServer(t))
	b.register("maya")
	require.Equal(t, http.StatusCreated, b.do("POST", "/api/v1/activity/lesson", LessonRequest{Subject: "Math", LessonName: "Basic Addition"}, nil))

	var stats models.StudentStats
	require.Equal(t, http.StatusOK, b.do("GET", "/api/v1/stats", nil, &stats))
	assert.Equal(t, 45, stats.TotalStars)

	// switching accounts without logging out leaves the cache behind
	b.register("leo")
	assert.Equal(t, http.StatusNotFound, b.do("GET", "/api/v1/stats", nil, nil))

	require.Equal(t, http.StatusOK, b.do("POST", "/login", models.LoginRequest{Username: "maya", Password: "secret123"}, nil))
	require.Equal(t, http.StatusNoContent, b.do("POST", "/logout", nil, nil))
	require.Equal(t, http.StatusOK, b.do("POST", "/login", models.LoginRequest{Username: "leo", Password: "secret123"}, nil))
	assert.Equal(t, http.StatusNotFound, b.do("GET", "/api/v1/stats", nil, nil))
}

func TestQuizScoreOutOfRange(t *testing.T) {
	b := newBrowser(t, newServer(t))
	b.register("ana")

	assert.Equal(t, http.StatusBadRequest, b.do("POST", "/api/v1/activity/quiz", QuizRequest{Subject: "Math", QuizName: "Sums", Score: 150}, nil))
	assert.Equal(t, http.StatusBadRequest, b.do("POST", "/api/v1/activity/quiz", QuizRequest{Subject: "Math", QuizName: "Sums", Score: -1}, nil))

	var recent struct {
		Activities []models.ActivityRecord `json:"activities"`
	}
	require.Equal(t, http.StatusOK, b.do("GET", "/api/v1/activity/recent", nil, &recent))
	assert.Empty(t, recent.Activities)
}

func TestRegisterErrors(t *testing.T) {
	b := newBrowser(t, newServer(t))
	b.register("maya")

	assert.Equal(t, http.StatusConflict, b.do("POST", "/register", models.CreateUserRequest{Username: "maya", Password: "secret123"}, nil))
	assert.Equal(t, http.StatusBadRequest, b.do("POST", "/register", models.CreateUserRequest{Username: "x", Password: "secret123"}, nil))
}

func TestContentEndpoints(t *testing.T) {
	b := newBrowser(t, newServer(t))

	var lessons struct {
		Lessons []content.Item `json:"lessons"`
	}
	require.Equal(t, http.StatusOK, b.do("GET", "/api/v1/lessons?subject=English", nil, &lessons))
	require.Len(t, lessons.Lessons, 1)
	assert.Equal(t, "Reading Rockets", lessons.Lessons[0].Title)

	require.Equal(t, http.StatusOK, b.do("GET", "/api/v1/lessons/search?q=Basic+Addition", nil, &lessons))
	require.NotEmpty(t, lessons.Lessons)
	assert.Equal(t, "add-1", lessons.Lessons[0].ID)

	var credits struct {
		Credits []content.Credit `json:"credits"`
	}
	require.Equal(t, http.StatusOK, b.do("GET", "/api/v1/credits", nil, &credits))
	assert.Len(t, credits.Credits, 1)
}

func TestSpeak(t *testing.T) {
	b := newBrowser(t, newServer(t))

	resp, err := b.client.Post(b.srv.URL+"/api/v1/audio/speak", "application/json", bytes.NewBufferString(`{"text":"Two plus two"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, b.do("POST", "/api/v1/audio/speak", SpeakRequest{Text: " "}, nil))
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSpeakLogsStreamFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	t.Cleanup(logger.UseCore(core))

	h := NewHandler(Deps{Audio: audio.NewService(echoSynth{}, "")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/audio/speak", bytes.NewBufferString(`{"text":"Hello"}`))
	h.Speak(brokenWriter{httptest.NewRecorder()}, req)

	entries := logs.FilterMessage("failed to stream narration").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection reset", entries[0].ContextMap()["error"])
}
