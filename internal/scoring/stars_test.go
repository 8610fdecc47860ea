package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLessonStars(t *testing.T) {
	tests := []struct {
		name       string
		difficulty Difficulty
		minutes    int
		want       int
	}{
		{"easy quick", DifficultyEasy, 8, 15},
		{"easy at ten", DifficultyEasy, 10, 15},
		{"easy moderate", DifficultyEasy, 15, 12},
		{"easy at twenty", DifficultyEasy, 20, 12},
		{"easy slow", DifficultyEasy, 45, 10},
		{"medium quick", DifficultyMedium, 3, 18},
		{"medium slow", DifficultyMedium, 30, 13},
		{"hard quick capped", DifficultyHard, 1, 20},
		{"hard moderate", DifficultyHard, 12, 17},
		{"hard slow", DifficultyHard, 21, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LessonStars(tt.difficulty, tt.minutes))
		})
	}
}

func TestLessonStarsBoundsAndMonotonic(t *testing.T) {
	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		prev := LessonStars(d, 1)
		for minutes := 1; minutes <= 120; minutes++ {
			got := LessonStars(d, minutes)
			assert.GreaterOrEqual(t, got, 10)
			assert.LessOrEqual(t, got, 20)
			assert.LessOrEqual(t, got, prev, "%s at %d minutes", d, minutes)
			prev = got
		}
	}
}

func TestQuizStars(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, 1},
		{2, 1},
		{50, 10},
		{79, 15},
		{80, 17},
		{85, 18},
		{90, 21},
		{95, 22},
		{99.9, 22},
		{100, 25},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, QuizStars(tt.score), "score %.1f", tt.score)
	}
}

func TestQuizStarsClampsScore(t *testing.T) {
	assert.Equal(t, QuizStars(100), QuizStars(150))
	assert.Equal(t, QuizStars(0), QuizStars(-20))
	assert.True(t, ValidQuizScore(0))
	assert.True(t, ValidQuizScore(100))
	assert.False(t, ValidQuizScore(100.5))
	assert.False(t, ValidQuizScore(-1))
}

func TestQuizStarsNonDecreasing(t *testing.T) {
	prev := QuizStars(0)
	for tenths := 0; tenths <= 1000; tenths++ {
		score := float64(tenths) / 10
		got := QuizStars(score)
		assert.GreaterOrEqual(t, got, 1)
		assert.GreaterOrEqual(t, got, prev, "score %.1f", score)
		prev = got
	}
	assert.Equal(t, QuizStars(100), prev, "a perfect score is the top tier")
}

func TestGameStars(t *testing.T) {
	tests := []struct {
		name    string
		score   float64
		minutes int
		want    int
	}{
		{"zero slow floors at one", 0, 30, 1},
		{"zero fast", 0, 2, 3},
		{"450 points medium pace", 450, 8, 5},
		{"450 points slow", 450, 11, 4},
		{"huge score capped", 5000, 1, 15},
		{"just under a hundred", 99, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GameStars(tt.score, tt.minutes))
		})
	}
}

func TestGameStarsBounds(t *testing.T) {
	for score := 0.0; score <= 3000; score += 37 {
		for minutes := 1; minutes <= 30; minutes++ {
			got := GameStars(score, minutes)
			assert.GreaterOrEqual(t, got, 1)
			assert.LessOrEqual(t, got, 15)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	assert.Equal(t, DifficultyHard, ParseDifficulty("HARD"))
	assert.Equal(t, DifficultyMedium, ParseDifficulty(" medium"))
	assert.Equal(t, DifficultyEasy, ParseDifficulty("easy"))
	assert.Equal(t, DifficultyEasy, ParseDifficulty("legendary"))
	assert.Equal(t, DifficultyEasy, ParseDifficulty(nil))
	assert.Equal(t, DifficultyEasy, ParseDifficulty(3))
}
