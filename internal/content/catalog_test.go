package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "addition.json", `{"id":"add-1","title":"Basic Addition","subject":"Math","difficulty":"easy",
		"credits":[{"image_path":"img/apples.png","attribution":"Apples by Ana"}]}`)
	writeFile(t, dir, "subtraction.json", `{"id":"sub-1","title":"Subtraction Safari","subject":"Math","difficulty":"medium",
		"credits":[{"image_path":"img/apples.png","attribution":"Apples by Ana"},{"image_path":"img/lion.png","attribution":"Lion by Bo"}]}`)
	writeFile(t, dir, "spelling.json", `{"id":"spell-1","title":"Spelling Bee","subject":"English","kind":"quiz","difficulty":"hard"}`)
	writeFile(t, dir, "broken.json", `{"title":`)
	writeFile(t, dir, "untitled.json", `{"subject":"Math"}`)
	writeFile(t, dir, "notes.txt", `ignored`)
	return mustLoad(t, dir)
}

func mustLoad(t *testing.T, dir string) *Catalog {
	t.Helper()
	c, err := LoadDir(dir)
	require.NoError(t, err)
	return c
}

func TestLoadDirSkipsBadFiles(t *testing.T) {
	c := loadFixture(t)
	assert.Equal(t, 3, c.Len())

	math := c.BySubject("math")
	require.Len(t, math, 2)
	assert.Equal(t, "Basic Addition", math[0].Title)
	assert.Equal(t, KindLesson, math[0].Kind)

	assert.Len(t, c.BySubject(""), 3)
}

func TestLookupIgnoresCase(t *testing.T) {
	c := loadFixture(t)

	item, ok := c.Lookup("basic addition")
	require.True(t, ok)
	assert.Equal(t, "easy", item.Difficulty)

	_, ok = c.Lookup("Long Division")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	c := loadFixture(t)

	got := c.Search("Spelling Bee", 3)
	require.Len(t, got, 1)
	assert.Equal(t, "spell-1", got[0].ID)

	got = c.Search("subtracton safri", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "Subtraction Safari", got[0].Title)

	assert.Empty(t, c.Search("", 3))
	assert.Empty(t, New(nil).Search("anything", 3))
}

func TestCreditsAreUniqueAndSorted(t *testing.T) {
	credits := loadFixture(t).Credits()
	require.Len(t, credits, 2)
	assert.Equal(t, "img/apples.png", credits[0].ImagePath)
	assert.Equal(t, "img/lion.png", credits[1].ImagePath)
}

func TestMissingDirIsEmpty(t *testing.T) {
	c := mustLoad(t, filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, 0, c.Len())
}
