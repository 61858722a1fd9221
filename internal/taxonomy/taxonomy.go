// Package taxonomy holds the household's three-level tag hierarchy and
// answers whether a (level 1, level 2, level 3) triple belongs to it.
//
// A Taxonomy is immutable once built and safe for concurrent readers.
// Lookups are exact and case-sensitive.
package taxonomy

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// Taxonomy is the root of the hierarchy: level-1 categories.
type Taxonomy struct {
	categories map[string]*Category
	order      []string
}

// Category is a level-1 tag and its level-2 subcategories.
type Category struct {
	name  string
	subs  map[string]*Subcategory
	order []string
}

// Subcategory is a level-2 tag and its ordered set of level-3 leaves.
type Subcategory struct {
	name   string
	leaves map[string]struct{}
	order  []string
}

// Triple is one fully qualified tag path.
type Triple struct {
	L1 string `json:"l1"`
	L2 string `json:"l2"`
	L3 string `json:"l3"`
}

// New builds a Taxonomy from the nested mapping found in the household
// configuration. Level-1 and level-2 names are kept in sorted order; leaf
// order is preserved and duplicate leaves are dropped.
func New(tags map[string]map[string][]string) *Taxonomy {
	t := &Taxonomy{categories: make(map[string]*Category, len(tags))}
	for l1, subs := range tags {
		c := &Category{name: l1, subs: make(map[string]*Subcategory, len(subs))}
		for l2, leaves := range subs {
			s := &Subcategory{name: l2, leaves: make(map[string]struct{}, len(leaves))}
			for _, l3 := range leaves {
				if _, dup := s.leaves[l3]; dup {
					continue
				}
				s.leaves[l3] = struct{}{}
				s.order = append(s.order, l3)
			}
			c.subs[l2] = s
			c.order = append(c.order, l2)
		}
		sort.Strings(c.order)
		t.categories[l1] = c
		t.order = append(t.order, l1)
	}
	sort.Strings(t.order)
	return t
}

// Verify reports whether l3 is a leaf of l2 under l1. Levels are checked
// in order and the first missing one makes the triple invalid.
func (t *Taxonomy) Verify(l1, l2, l3 string) bool {
	c, ok := t.Category(l1)
	if !ok {
		return false
	}
	s, ok := c.Subcategory(l2)
	if !ok {
		return false
	}
	return s.HasLeaf(l3)
}

// Category returns the level-1 entry named l1.
func (t *Taxonomy) Category(l1 string) (*Category, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.categories[l1]
	return c, ok
}

// Categories lists the level-1 names in sorted order.
func (t *Taxonomy) Categories() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Len reports the number of valid triples.
func (t *Taxonomy) Len() int {
	n := 0
	for _, l1 := range t.Categories() {
		c := t.categories[l1]
		for _, l2 := range c.order {
			n += len(c.subs[l2].order)
		}
	}
	return n
}

// Triples enumerates every valid triple in hierarchy order.
func (t *Taxonomy) Triples() []Triple {
	var out []Triple
	for _, l1 := range t.Categories() {
		c := t.categories[l1]
		for _, l2 := range c.order {
			for _, l3 := range c.subs[l2].order {
				out = append(out, Triple{L1: l1, L2: l2, L3: l3})
			}
		}
	}
	return out
}

// Suggest returns the valid triple closest to the given one, measured as
// the summed edit distance of the three levels. Ties go to the earliest
// triple in hierarchy order. It returns false for an empty taxonomy.
func (t *Taxonomy) Suggest(l1, l2, l3 string) (Triple, bool) {
	var (
		best     Triple
		bestDist = -1
	)
	for _, tr := range t.Triples() {
		d := levenshtein.ComputeDistance(l1, tr.L1) +
			levenshtein.ComputeDistance(l2, tr.L2) +
			levenshtein.ComputeDistance(l3, tr.L3)
		if bestDist < 0 || d < bestDist {
			best, bestDist = tr, d
		}
	}
	return best, bestDist >= 0
}

func (c *Category) Name() string { return c.name }

// Subcategory returns the level-2 entry named l2.
func (c *Category) Subcategory(l2 string) (*Subcategory, bool) {
	s, ok := c.subs[l2]
	return s, ok
}

// Subcategories lists the level-2 names in sorted order.
func (c *Category) Subcategories() []string {
	return append([]string(nil), c.order...)
}

func (s *Subcategory) Name() string { return s.name }

// HasLeaf reports whether l3 is one of the subcategory's leaves.
func (s *Subcategory) HasLeaf(l3 string) bool {
	_, ok := s.leaves[l3]
	return ok
}

// Leaves lists the level-3 names in configured order.
func (s *Subcategory) Leaves() []string {
	return append([]string(nil), s.order...)
}
