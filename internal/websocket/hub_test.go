package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/starpath-web/internal/models"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(hub.Handler(func(r *http.Request) (string, bool) {
		id := r.URL.Query().Get("student")
		return id, id != ""
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, student string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?student=" + student
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAchievementReachesOnlyThatStudent(t *testing.T) {
	hub, srv := startHub(t)
	maya := dial(t, srv, "1")
	leo := dial(t, srv, "2")

	require.Eventually(t, func() bool {
		return hub.Connected("1") == 1 && hub.Connected("2") == 1
	}, time.Second, 10*time.Millisecond)

	hub.AchievementEarned("1", models.ActivityRecord{
		ID:           "1_abc",
		StudentID:    "1",
		ActivityType: models.ActivityAchievementEarned,
		Subject:      "Math",
		LessonName:   "Math Beginner",
		StarsEarned:  25,
	})

	var ev Event
	require.NoError(t, maya.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, maya.ReadJSON(&ev))
	assert.Equal(t, "achievement_earned", ev.Type)
	assert.Equal(t, "Math Beginner", ev.Record.LessonName)

	require.NoError(t, leo.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := leo.ReadMessage()
	assert.Error(t, err, "other students get nothing")
}

func TestHandlerRequiresStudent(t *testing.T) {
	_, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "1")

	require.Eventually(t, func() bool { return hub.Connected("1") == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.Connected("1") == 0 }, time.Second, 10*time.Millisecond)
}
