package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/closestmatch"

	"github.com/tahcohcat/starpath-web/internal/logger"
)

type Kind string

const (
	KindLesson Kind = "lesson"
	KindQuiz   Kind = "quiz"
	KindGame   Kind = "game"
)

type Credit struct {
	ImagePath   string `json:"image_path"`
	Attribution string `json:"attribution"`
}

// Item is one lesson, quiz or game loaded from JSON
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Subject     string   `json:"subject"`
	Kind        Kind     `json:"kind"`
	Difficulty  string   `json:"difficulty"`
	Description string   `json:"description"`
	AgeMin      int      `json:"age_min,omitempty"`
	AgeMax      int      `json:"age_max,omitempty"`
	Credits     []Credit `json:"credits,omitempty"`
}

type Catalog struct {
	items   []Item
	byTitle map[string]*Item
	matcher *closestmatch.ClosestMatch
}

// LoadItemFromFile loads one content item from a JSON file
func LoadItemFromFile(filename string) (Item, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Item{}, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	var item Item
	if err := json.NewDecoder(file).Decode(&item); err != nil {
		return Item{}, fmt.Errorf("failed to decode content JSON: %w", err)
	}
	if item.Title == "" || item.Subject == "" {
		return Item{}, fmt.Errorf("content %s: title and subject are required", filename)
	}
	if item.Kind == "" {
		item.Kind = KindLesson
	}
	return item, nil
}

// LoadDir reads every *.json file in dir. Unreadable files are skipped with a
// warning. A missing dir yields an empty catalog.
func LoadDir(dir string) (*Catalog, error) {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.New().With("dir", dir).Warn("content directory not found, catalog is empty")
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content directory %s: %w", dir, err)
	}

	var items []Item
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, file.Name())
		item, err := LoadItemFromFile(path)
		if err != nil {
			logger.New().With("file", path).WithError(err).Warn("skipping content file")
			continue
		}
		items = append(items, item)
	}
	return New(items), nil
}

func New(items []Item) *Catalog {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Subject != items[j].Subject {
			return items[i].Subject < items[j].Subject
		}
		return items[i].Title < items[j].Title
	})

	c := &Catalog{items: items, byTitle: make(map[string]*Item, len(items))}
	titles := make([]string, 0, len(items))
	for i := range c.items {
		c.byTitle[strings.ToLower(c.items[i].Title)] = &c.items[i]
		titles = append(titles, c.items[i].Title)
	}
	if len(titles) > 0 {
		c.matcher = closestmatch.New(titles, []int{2, 3})
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// BySubject lists items of subject, or all items when subject is empty.
func (c *Catalog) BySubject(subject string) []Item {
	out := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		if subject == "" || strings.EqualFold(item.Subject, subject) {
			out = append(out, item)
		}
	}
	return out
}

// Lookup finds an item by exact title, ignoring case.
func (c *Catalog) Lookup(title string) (Item, bool) {
	item, ok := c.byTitle[strings.ToLower(strings.TrimSpace(title))]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Search returns up to n items whose titles best match query.
func (c *Catalog) Search(query string, n int) []Item {
	query = strings.TrimSpace(query)
	if c.matcher == nil || query == "" || n <= 0 {
		return nil
	}
	if item, ok := c.Lookup(query); ok {
		return []Item{item}
	}

	var out []Item
	for _, title := range c.matcher.ClosestN(query, n) {
		if item, ok := c.Lookup(title); ok {
			out = append(out, item)
		}
	}
	return out
}

// Credits returns the unique image credits of every item, sorted by path.
func (c *Catalog) Credits() []Credit {
	unique := make(map[string]Credit)
	for _, item := range c.items {
		for _, credit := range item.Credits {
			unique[credit.ImagePath] = credit
		}
	}

	out := make([]Credit, 0, len(unique))
	for _, credit := range unique {
		out = append(out, credit)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ImagePath < out[j].ImagePath
	})
	return out
}
