// Package catalog provides the read-only food catalog view. A View is an
// immutable snapshot and is safely shared across concurrent requests without
// locking.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"nutriagent"
	"nutriagent/catalog/storage"
)

// View is an in-memory catalog snapshot keyed by food id.
type View struct {
	items map[string]nutriagent.FoodItem
	ids   []string // sorted, for deterministic iteration
}

// New builds a view from the given items. Later duplicates win.
func New(items []nutriagent.FoodItem) *View {
	v := &View{items: make(map[string]nutriagent.FoodItem, len(items))}
	for _, it := range items {
		v.items[it.ID] = it
	}
	v.ids = make([]string, 0, len(v.items))
	for id := range v.items {
		v.ids = append(v.ids, id)
	}
	sort.Strings(v.ids)
	return v
}

// Load reads a catalog document ({"foods": [...]}) from the given source.
func Load(ctx context.Context, src storage.CatalogSource) (*View, error) {
	b, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc struct {
		Foods []nutriagent.FoodItem `json:"foods"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc.Foods), nil
}

// Get returns the item with the given id.
func (v *View) Get(id string) (nutriagent.FoodItem, error) {
	it, ok := v.items[id]
	if !ok {
		return nutriagent.FoodItem{}, &nutriagent.NotFoundError{FoodID: id}
	}
	return it, nil
}

// Search returns items carrying every requested dietary tag and none of the
// excluded allergens. Result order is by id; callers re-sort as needed.
func (v *View) Search(tags []string, excludeAllergens []string) []nutriagent.FoodItem {
	out := make([]nutriagent.FoodItem, 0)
	for _, id := range v.ids {
		it := v.items[id]
		if !hasAllTags(it, tags) {
			continue
		}
		if hasAnyAllergen(it, excludeAllergens) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// All returns every item, ordered by id.
func (v *View) All() []nutriagent.FoodItem {
	out := make([]nutriagent.FoodItem, 0, len(v.ids))
	for _, id := range v.ids {
		out = append(out, v.items[id])
	}
	return out
}

// Len returns the number of items in the snapshot.
func (v *View) Len() int { return len(v.ids) }

func hasAllTags(it nutriagent.FoodItem, tags []string) bool {
	for _, t := range tags {
		if !it.HasTag(t) {
			return false
		}
	}
	return true
}

func hasAnyAllergen(it nutriagent.FoodItem, allergens []string) bool {
	for _, a := range allergens {
		if it.HasAllergen(a) {
			return true
		}
	}
	return false
}
