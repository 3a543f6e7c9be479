// Package catalog models the server-provided list of scrap categories and
// their current price per kilogram.
package catalog

import (
	"encoding/json"
	"sort"
	"time"
)

// Scrap is a sellable subcategory with its current price.
type Scrap struct {
	ID         string  `json:"_id"`
	Name       string  `json:"name"`
	PricePerKg float64 `json:"pricePerKg"`
	CategoryID string  `json:"category"`
	Image      string  `json:"scrapImage,omitempty"`
}

// Category is a material group such as "Metal" or "Paper".
type Category struct {
	ID     string  `json:"_id"`
	Name   string  `json:"name"`
	Image  string  `json:"image,omitempty"`
	Scraps []Scrap `json:"scraps"`
}

// Snapshot is an immutable, indexed view of the catalog at one point in time.
type Snapshot struct {
	categories []Category
	fetchedAt  time.Time
	scraps     map[string]Scrap
	byCategory map[string]int
}

// NewSnapshot indexes categories. Scraps without a CategoryID inherit the
// id of the category they are listed under.
func NewSnapshot(categories []Category, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		categories: make([]Category, len(categories)),
		fetchedAt:  fetchedAt,
		scraps:     make(map[string]Scrap),
		byCategory: make(map[string]int, len(categories)),
	}
	for i, c := range categories {
		cp := c
		cp.Scraps = make([]Scrap, len(c.Scraps))
		for j, sc := range c.Scraps {
			if sc.CategoryID == "" {
				sc.CategoryID = c.ID
			}
			cp.Scraps[j] = sc
			s.scraps[sc.ID] = sc
		}
		s.categories[i] = cp
		s.byCategory[c.ID] = i
	}
	return s
}

// FetchedAt returns when the snapshot was taken.
func (s *Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

// Categories returns a copy of all categories.
func (s *Snapshot) Categories() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Category returns the category with id.
func (s *Snapshot) Category(id string) (Category, bool) {
	i, ok := s.byCategory[id]
	if !ok {
		return Category{}, false
	}
	return s.categories[i], true
}

// Lookup returns the scrap with id.
func (s *Snapshot) Lookup(id string) (Scrap, bool) {
	sc, ok := s.scraps[id]
	return sc, ok
}

// ScrapsFor returns the scraps of the given categories sorted by name.
// Unknown category ids are ignored.
func (s *Snapshot) ScrapsFor(categoryIDs []string) []Scrap {
	var out []Scrap
	for _, id := range categoryIDs {
		if c, ok := s.Category(id); ok {
			out = append(out, c.Scraps...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of scraps in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.scraps)
}

type snapshotJSON struct {
	Categories []Category `json:"categories"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

// MarshalJSON implements json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{Categories: s.categories, FetchedAt: s.fetchedAt})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = *NewSnapshot(raw.Categories, raw.FetchedAt)
	return nil
}
