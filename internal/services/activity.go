package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tahcohcat/starpath-web/internal/achievements"
	"github.com/tahcohcat/starpath-web/internal/logger"
	"github.com/tahcohcat/starpath-web/internal/metrics"
	"github.com/tahcohcat/starpath-web/internal/models"
	"github.com/tahcohcat/starpath-web/internal/scoring"
	"github.com/tahcohcat/starpath-web/internal/storage"
)

// ErrNotAuthenticated means no student is signed in; nothing was written.
var ErrNotAuthenticated = errors.New("not authenticated")

// GameSubject is the subject every game is filed under.
const GameSubject = "Math"

// SessionState resolves the signed-in student.
type SessionState interface {
	CurrentUser(ctx context.Context) (*models.User, bool)
}

// Notifier is told about every badge granted.
type Notifier interface {
	AchievementEarned(studentID string, record models.ActivityRecord)
}

type ActivityService struct {
	store    *storage.Store
	session  SessionState
	engine   *achievements.Engine
	notifier Notifier
	locker   *KeyedLocker
	now      func() time.Time
	newID    func(time.Time) string
	logger   *logger.Log
}

type ActivityOption func(*ActivityService)

func WithClock(now func() time.Time) ActivityOption {
	return func(s *ActivityService) { s.now = now }
}

func WithIDGenerator(gen func(time.Time) string) ActivityOption {
	return func(s *ActivityService) { s.newID = gen }
}

func WithEngine(e *achievements.Engine) ActivityOption {
	return func(s *ActivityService) { s.engine = e }
}

func WithNotifier(n Notifier) ActivityOption {
	return func(s *ActivityService) { s.notifier = n }
}

// WithLocker shares a locker between services built for the same backend so
// concurrent requests of one client are serialized.
func WithLocker(l *KeyedLocker) ActivityOption {
	return func(s *ActivityService) { s.locker = l }
}

func NewActivityService(store *storage.Store, session SessionState, opts ...ActivityOption) *ActivityService {
	s := &ActivityService{
		store:   store,
		session: session,
		engine:  achievements.NewEngine(),
		locker:  NewKeyedLocker(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   NewActivityID,
		logger:  logger.New().With("service", "ActivityService", "namespace", store.Namespace()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewActivityID is the creation timestamp in millis plus a random suffix.
func NewActivityID(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(at.UnixMilli(), 10) + "_" + suffix
}

// TrackLessonCompletion records a finished lesson. metadata["difficulty"]
// (easy, medium, hard) drives the bonus.
func (s *ActivityService) TrackLessonCompletion(ctx context.Context, subject, lessonName string, timeSpentMinutes int, metadata models.Metadata) (*models.ActivityRecord, error) {
	minutes := clampMinutes(timeSpentMinutes)
	stars := scoring.LessonStars(scoring.ParseDifficulty(metadata["difficulty"]), minutes)

	return s.track(ctx, models.ActivityRecord{
		ActivityType:     models.ActivityLessonCompleted,
		Subject:          subject,
		LessonName:       lessonName,
		StarsEarned:      stars,
		TimeSpentMinutes: minutes,
		Metadata:         metadata,
	})
}

func (s *ActivityService) TrackQuizCompletion(ctx context.Context, subject, quizName string, score float64, totalQuestions, timeSpentMinutes int, metadata models.Metadata) (*models.ActivityRecord, error) {
	md := copyMetadata(metadata)
	md["total_questions"] = totalQuestions

	return s.track(ctx, models.ActivityRecord{
		ActivityType:     models.ActivityQuizCompleted,
		Subject:          subject,
		LessonName:       quizName,
		Score:            &score,
		StarsEarned:      scoring.QuizStars(score),
		TimeSpentMinutes: clampMinutes(timeSpentMinutes),
		Metadata:         md,
	})
}

// TrackGameCompletion records a finished game. Games are always filed under
// GameSubject.
func (s *ActivityService) TrackGameCompletion(ctx context.Context, gameName string, score float64, timeSpentMinutes int, metadata models.Metadata) (*models.ActivityRecord, error) {
	minutes := clampMinutes(timeSpentMinutes)

	return s.track(ctx, models.ActivityRecord{
		ActivityType:     models.ActivityGamePlayed,
		Subject:          GameSubject,
		LessonName:       gameName,
		Score:            &score,
		StarsEarned:      scoring.GameStars(score, minutes),
		TimeSpentMinutes: minutes,
		Metadata:         metadata,
	})
}

// AwardAchievement grants a badge directly. It returns (nil, nil) when the
// student already holds a badge with this title.
func (s *ActivityService) AwardAchievement(ctx context.Context, subject, title, description, icon string, stars int) (*models.ActivityRecord, error) {
	user, ok := s.session.CurrentUser(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	studentID := user.StudentID()

	unlock := s.locker.Lock(s.store.Namespace())
	defer unlock()

	history := s.loadActivities(ctx)
	if achievements.EarnedTitles(history, studentID)[title] {
		return nil, nil
	}

	rec := s.achievementRecord(studentID, history, models.Achievement{
		Subject:     subject,
		Title:       title,
		Description: description,
		Icon:        icon,
		Stars:       max(stars, 0),
	})
	s.saveActivities(ctx, append([]models.ActivityRecord{rec}, history...))
	s.announce(studentID, rec)
	return &rec, nil
}

// GetRecentActivities returns the signed-in student's records, newest first.
func (s *ActivityService) GetRecentActivities(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	user, ok := s.session.CurrentUser(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	studentID := user.StudentID()

	history := s.loadActivities(ctx)
	out := make([]models.ActivityRecord, 0, len(history))
	for _, rec := range history {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetStudentStats returns the cached aggregate of the signed-in student, if
// one was written. A cache left by another student on this client is absent.
func (s *ActivityService) GetStudentStats(ctx context.Context) (*models.StudentStats, bool) {
	user, ok := s.session.CurrentUser(ctx)
	if !ok {
		return nil, false
	}

	var stats models.StudentStats
	if !s.store.Get(ctx, storage.KeyStudentStats, &stats) || stats.StudentID != user.StudentID() {
		return nil, false
	}
	return &stats, true
}

func (s *ActivityService) track(ctx context.Context, rec models.ActivityRecord) (*models.ActivityRecord, error) {
	user, ok := s.session.CurrentUser(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	unlock := s.locker.Lock(s.store.Namespace())
	defer unlock()

	history := s.loadActivities(ctx)

	rec.StudentID = user.StudentID()
	rec.CreatedAt = s.now()
	rec.ID = s.uniqueID(history, rec.CreatedAt)
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build activity: %w", err)
	}

	history = append([]models.ActivityRecord{rec}, history...)
	s.saveActivities(ctx, history)
	metrics.RecordActivity(string(rec.ActivityType))

	s.checkAchievements(ctx, history, rec)
	return &rec, nil
}

// checkAchievements grants every badge rec unlocked. The activity is already
// saved; failures here are logged only.
func (s *ActivityService) checkAchievements(ctx context.Context, history []models.ActivityRecord, rec models.ActivityRecord) {
	awards, err := s.engine.Evaluate(history, rec.StudentID, rec.Subject)
	if err != nil {
		metrics.RecordAchievementFailure()
		s.logger.With("activity_id", rec.ID, "subject", rec.Subject).WithError(err).Warn("achievement check failed")
		return
	}
	if len(awards) == 0 {
		return
	}

	// every badge of one pass goes out in a single write
	granted := make([]models.ActivityRecord, 0, len(awards))
	for _, award := range awards {
		a := s.achievementRecord(rec.StudentID, history, award.Achievement)
		history = append([]models.ActivityRecord{a}, history...)
		granted = append(granted, a)
	}
	s.saveActivities(ctx, history)

	for _, a := range granted {
		s.announce(rec.StudentID, a)
	}
}

func (s *ActivityService) achievementRecord(studentID string, history []models.ActivityRecord, a models.Achievement) models.ActivityRecord {
	now := s.now()
	return models.ActivityRecord{
		ID:               s.uniqueID(history, now),
		StudentID:        studentID,
		ActivityType:     models.ActivityAchievementEarned,
		Subject:          a.Subject,
		LessonName:       a.Title,
		StarsEarned:      a.Stars,
		TimeSpentMinutes: 1,
		Metadata: models.Metadata{
			"description": a.Description,
			"icon":        a.Icon,
		},
		CreatedAt: now,
	}
}

func (s *ActivityService) announce(studentID string, rec models.ActivityRecord) {
	metrics.RecordAchievement(rec.LessonName)
	s.logger.With("student_id", studentID, "title", rec.LessonName, "stars", rec.StarsEarned).Info("achievement earned")
	if s.notifier != nil {
		s.notifier.AchievementEarned(studentID, rec)
	}
}

func (s *ActivityService) uniqueID(history []models.ActivityRecord, at time.Time) string {
	taken := make(map[string]bool, len(history))
	for i := range history {
		taken[history[i].ID] = true
	}
	for {
		id := s.newID(at)
		if !taken[id] {
			return id
		}
	}
}

func (s *ActivityService) loadActivities(ctx context.Context) []models.ActivityRecord {
	var history []models.ActivityRecord
	s.store.Get(ctx, storage.KeyStudentActivities, &history)
	return history
}

func (s *ActivityService) saveActivities(ctx context.Context, history []models.ActivityRecord) {
	s.store.Set(ctx, storage.KeyStudentActivities, history)
}

func clampMinutes(minutes int) int {
	if minutes < 1 {
		return 1
	}
	return minutes
}

func copyMetadata(md models.Metadata) models.Metadata {
	out := make(models.Metadata, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	return out
}
