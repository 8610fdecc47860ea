package services

import (
	"context"
	"time"

	"github.com/tahcohcat/starpath-web/internal/models"
	"github.com/tahcohcat/starpath-web/internal/storage"
)

// StarsPerLevel is how many stars make one level.
const StarsPerLevel = 100

// StatsService rebuilds the cached StudentStats from the activity list.
type StatsService struct {
	store   *storage.Store
	session SessionState
	now     func() time.Time
}

func NewStatsService(store *storage.Store, session SessionState) *StatsService {
	return &StatsService{
		store:   store,
		session: session,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Refresh recomputes the signed-in student's stats and writes the cache.
func (s *StatsService) Refresh(ctx context.Context) (*models.StudentStats, error) {
	user, ok := s.session.CurrentUser(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	var history []models.ActivityRecord
	s.store.Get(ctx, storage.KeyStudentActivities, &history)

	stats := Aggregate(history, user.StudentID(), s.now())
	s.store.Set(ctx, storage.KeyStudentStats, stats)
	return stats, nil
}

// Aggregate totals studentID's records.
func Aggregate(history []models.ActivityRecord, studentID string, now time.Time) *models.StudentStats {
	stats := &models.StudentStats{
		StudentID:    studentID,
		SubjectStars: make(map[string]int),
		UpdatedAt:    now,
	}

	for i := range history {
		rec := &history[i]
		if rec.StudentID != studentID {
			continue
		}

		stats.TotalStars += rec.StarsEarned
		stats.SubjectStars[rec.Subject] += rec.StarsEarned

		switch rec.ActivityType {
		case models.ActivityLessonCompleted:
			stats.LessonsCompleted++
		case models.ActivityQuizCompleted:
			stats.QuizzesCompleted++
		case models.ActivityGamePlayed:
			stats.GamesPlayed++
		case models.ActivityAchievementEarned:
			stats.AchievementsEarned++
			// badges are rewards, not study time
			continue
		}
		stats.TotalTimeMinutes += rec.TimeSpentMinutes

		if stats.LastActivityAt == nil || rec.CreatedAt.After(*stats.LastActivityAt) {
			at := rec.CreatedAt
			stats.LastActivityAt = &at
		}
	}

	stats.Level = stats.TotalStars/StarsPerLevel + 1
	return stats
}
