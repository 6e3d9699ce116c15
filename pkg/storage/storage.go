// Package storage keeps raw source documents on disk so a failed extraction
// can be replayed offline with `extract --file`.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/dtnitsch/lunch-bot/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Storage struct {
	Dir string
}

// New returns a Storage rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating snapshot dir: %w", err)
	}
	return &Storage{Dir: dir}, nil
}

func (s *Storage) SaveFile(filePath string, content []byte) error {
	err := os.WriteFile(filePath, content, 0644)
	if err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}

	return nil
}

func (s *Storage) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return data, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

func (s *Storage) HasFile(fn string) bool {
	return fileExists(fn)
}

// SnapshotPath returns <dir>/<date>-<slug>.<html|json> for a restaurant.
func (s *Storage) SnapshotPath(restaurant string, date time.Time, format models.Format) string {
	ext := "html"
	if format == models.FormatFeed {
		ext = "json"
	}
	name := fmt.Sprintf("%s-%s.%s", date.Format("2006-01-02"), Slug(restaurant), ext)
	return filepath.Join(s.Dir, name)
}

// Snapshot writes the decoded document. Writing the same day twice
// overwrites the earlier snapshot.
func (s *Storage) Snapshot(restaurant string, date time.Time, doc *models.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("no document for %s", restaurant)
	}
	path := s.SnapshotPath(restaurant, date, doc.Format)
	if err := s.SaveFile(path, doc.Content); err != nil {
		return "", err
	}
	return path, nil
}

// ShouldSnapshot reports whether a result is worth keeping for replay.
func ShouldSnapshot(res models.MenuResult) bool {
	return res.Status == models.StatusParseFailed || res.Status == models.StatusEmpty
}

// Slug lowercases name, folds diacritics and joins words with '-'.
// "Södra Porten" becomes "sodra-porten".
func Slug(name string) string {
	// Chains are stateful; Slug runs from concurrent observers.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "restaurant"
	}
	return slug
}
