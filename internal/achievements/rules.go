// Package achievements decides which one-time badges a student has just earned.
package achievements

import (
	"errors"
	"fmt"

	"github.com/tahcohcat/starpath-web/internal/models"
)

var ErrEvaluation = errors.New("achievement evaluation failed")

// Tally is a student's activity within one subject.
type Tally struct {
	Lessons    int
	Quizzes    int
	Games      int
	TotalStars int
}

// Rule is one badge and the condition that grants it.
type Rule struct {
	ID          string
	Description string
	Icon        string
	Stars       int
	// TitleFor builds the badge title, which is also its idempotency key.
	TitleFor func(subject string) string
	// Count is the milestone counter checked against Threshold; nil for star rules.
	Count     func(Tally) int
	Threshold int
}

func (r Rule) Title(subject string) string {
	return r.TitleFor(subject)
}

func subjectTitle(suffix string) func(string) string {
	return func(subject string) string { return subject + " " + suffix }
}

func fixedTitle(title string) func(string) string {
	return func(string) string { return title }
}

func lessons(t Tally) int { return t.Lessons }
func quizzes(t Tally) int { return t.Quizzes }
func games(t Tally) int   { return t.Games }

// DefaultRules are evaluated in this order.
var DefaultRules = []Rule{
	{ID: "beginner", TitleFor: subjectTitle("Beginner"), Description: "Completed your first lesson", Icon: "🌟", Stars: 25, Count: lessons, Threshold: 1},
	{ID: "explorer", TitleFor: subjectTitle("Explorer"), Description: "Completed 5 lessons", Icon: "🚀", Stars: 50, Count: lessons, Threshold: 5},
	{ID: "scholar", TitleFor: subjectTitle("Scholar"), Description: "Completed 10 lessons", Icon: "📚", Stars: 75, Count: lessons, Threshold: 10},
	{ID: "quiz-master", TitleFor: subjectTitle("Quiz Master"), Description: "Completed 5 quizzes", Icon: "🧠", Stars: 60, Count: quizzes, Threshold: 5},
	{ID: "game-player", TitleFor: fixedTitle("Game Player"), Description: "Played 3 games", Icon: "🎮", Stars: 40, Count: games, Threshold: 3},
	{ID: "star-collector", TitleFor: fixedTitle("Star Collector"), Description: "Collected 100 stars", Icon: "⭐", Stars: 100, Threshold: 100},
	{ID: "star-master", TitleFor: fixedTitle("Star Master"), Description: "Collected 500 stars", Icon: "🌟", Stars: 150, Threshold: 500},
}

// Award is a rule that fired for a subject.
type Award struct {
	models.Achievement
	RuleID string
}

type Engine struct {
	rules []Rule
	// retroactive grants count milestones already passed (>= instead of ==).
	retroactive bool
}

type Option func(*Engine)

// WithRetroactive grants count milestones a student has already passed, for
// histories imported past a threshold.
func WithRetroactive(enabled bool) Option {
	return func(e *Engine) { e.retroactive = enabled }
}

func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Rules() []Rule {
	return e.rules
}

// TallySubject counts the student's activity in subject. Stars include badges
// already earned in the subject.
func TallySubject(history []models.ActivityRecord, studentID, subject string) Tally {
	var t Tally
	for i := range history {
		rec := &history[i]
		if rec.StudentID != studentID || rec.Subject != subject {
			continue
		}
		t.TotalStars += rec.StarsEarned
		switch rec.ActivityType {
		case models.ActivityLessonCompleted:
			t.Lessons++
		case models.ActivityQuizCompleted:
			t.Quizzes++
		case models.ActivityGamePlayed:
			t.Games++
		}
	}
	return t
}

// EarnedTitles returns the titles of every badge the student holds.
func EarnedTitles(history []models.ActivityRecord, studentID string) map[string]bool {
	earned := make(map[string]bool)
	for i := range history {
		rec := &history[i]
		if rec.StudentID == studentID && rec.IsAchievement() {
			earned[rec.LessonName] = true
		}
	}
	return earned
}

func (e *Engine) matches(r Rule, t Tally) bool {
	if r.Count == nil {
		return t.TotalStars >= r.Threshold
	}
	n := r.Count(t)
	if e.retroactive {
		return n >= r.Threshold
	}
	return n == r.Threshold
}

// Evaluate returns the badges newly earned by studentID in subject, in rule
// order. The tally is taken once from history; badges granted by this pass do
// not feed back into the star rules until the next evaluation.
func (e *Engine) Evaluate(history []models.ActivityRecord, studentID, subject string) (awards []Award, err error) {
	defer func() {
		if r := recover(); r != nil {
			awards = nil
			err = fmt.Errorf("%w: %v", ErrEvaluation, r)
		}
	}()

	if studentID == "" {
		return nil, fmt.Errorf("%w: empty student id", ErrEvaluation)
	}

	tally := TallySubject(history, studentID, subject)
	earned := EarnedTitles(history, studentID)

	for _, rule := range e.rules {
		if !e.matches(rule, tally) {
			continue
		}
		title := rule.Title(subject)
		if earned[title] {
			continue
		}
		earned[title] = true
		awards = append(awards, Award{
			RuleID: rule.ID,
			Achievement: models.Achievement{
				Subject:     subject,
				Title:       title,
				Description: rule.Description,
				Icon:        rule.Icon,
				Stars:       rule.Stars,
			},
		})
	}
	return awards, nil
}
