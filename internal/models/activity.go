package models

import (
	"errors"
	"fmt"
	"time"
)

type ActivityType string

const (
	ActivityLessonCompleted   ActivityType = "lesson_completed"
	ActivityQuizCompleted     ActivityType = "quiz_completed"
	ActivityGamePlayed        ActivityType = "game_played"
	ActivityAchievementEarned ActivityType = "achievement_earned"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityLessonCompleted, ActivityQuizCompleted, ActivityGamePlayed, ActivityAchievementEarned:
		return true
	}
	return false
}

// Metadata is display-only context attached to a record (difficulty, counts, icon...).
type Metadata map[string]interface{}

// String returns the value under key when it is a string.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// ActivityRecord is one logged unit of student progress. Records are append-only.
type ActivityRecord struct {
	ID               string       `json:"id"`
	StudentID        string       `json:"student_id"`
	ActivityType     ActivityType `json:"activity_type"`
	Subject          string       `json:"subject"`
	LessonName       string       `json:"lesson_name,omitempty"`
	Score            *float64     `json:"score,omitempty"`
	StarsEarned      int          `json:"stars_earned"`
	TimeSpentMinutes int          `json:"time_spent_minutes"`
	Metadata         Metadata     `json:"metadata,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

var ErrInvalidRecord = errors.New("invalid activity record")

func (r *ActivityRecord) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	case r.StudentID == "":
		return fmt.Errorf("%w: empty student id", ErrInvalidRecord)
	case !r.ActivityType.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, r.ActivityType)
	case r.StarsEarned < 0:
		return fmt.Errorf("%w: negative stars", ErrInvalidRecord)
	case r.TimeSpentMinutes < 1:
		return fmt.Errorf("%w: time spent below one minute", ErrInvalidRecord)
	}
	return nil
}

// IsAchievement reports whether the record is an earned badge.
func (r *ActivityRecord) IsAchievement() bool {
	return r.ActivityType == ActivityAchievementEarned
}

// StudentStats is the cached aggregate of a student's activity list.
type StudentStats struct {
	StudentID          string         `json:"student_id"`
	TotalStars         int            `json:"total_stars"`
	Level              int            `json:"level"`
	LessonsCompleted   int            `json:"lessons_completed"`
	QuizzesCompleted   int            `json:"quizzes_completed"`
	GamesPlayed        int            `json:"games_played"`
	AchievementsEarned int            `json:"achievements_earned"`
	TotalTimeMinutes   int            `json:"total_time_minutes"`
	SubjectStars       map[string]int `json:"subject_stars"`
	LastActivityAt     *time.Time     `json:"last_activity_at,omitempty"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Achievement describes a badge being granted.
type Achievement struct {
	Subject     string `json:"subject"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Stars       int    `json:"stars"`
}
