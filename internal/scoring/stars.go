// Package scoring turns lesson, quiz and game performance into stars.
//
// All formulas use integer floor and are part of the client contract: the
// thresholds must not drift or previously earned totals stop matching.
package scoring

import (
	"math"
	"strings"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

const (
	lessonBase = 10
	lessonCap  = 20

	quizScale = 20

	gameMin = 1
	gameMax = 15
)

// ParseDifficulty reads a metadata value. Unknown values score as easy.
func ParseDifficulty(v interface{}) Difficulty {
	s, _ := v.(string)
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyHard:
		return DifficultyHard
	case DifficultyMedium:
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}

// LessonStars returns 10 base, a difficulty bonus and a speed bonus, capped at 20.
func LessonStars(d Difficulty, minutes int) int {
	stars := lessonBase

	switch d {
	case DifficultyHard:
		stars += 5
	case DifficultyMedium:
		stars += 3
	}

	switch {
	case minutes <= 10:
		stars += 5
	case minutes <= 20:
		stars += 2
	}

	if stars > lessonCap {
		stars = lessonCap
	}
	return stars
}

// ValidQuizScore reports whether score is a percentage.
func ValidQuizScore(score float64) bool {
	return score >= 0 && score <= 100
}

// QuizStars scales a percentage to 20 and adds the highest bonus tier reached.
// Scores outside [0, 100] are clamped. Never less than 1.
func QuizStars(score float64) int {
	score = math.Max(0, math.Min(100, score))
	stars := int(math.Floor(score / 100 * quizScale))

	switch {
	case score == 100:
		stars += 5
	case score >= 90:
		stars += 3
	case score >= 80:
		stars += 1
	}

	if stars < 1 {
		stars = 1
	}
	return stars
}

// GameStars awards one star per hundred points plus a speed bonus, within [1, 15].
func GameStars(score float64, minutes int) int {
	stars := int(math.Floor(score / 100))

	switch {
	case minutes <= 5:
		stars += 3
	case minutes <= 10:
		stars += 1
	}

	if stars < gameMin {
		return gameMin
	}
	if stars > gameMax {
		return gameMax
	}
	return stars
}
