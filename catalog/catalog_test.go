package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriagent"
	"nutriagent/catalog/storage"
)

func testItems() []nutriagent.FoodItem {
	return []nutriagent.FoodItem{
		{ID: "tofu", Name: "Tofu", Category: "protein", Allergens: []string{"soy"}, DietaryTags: []string{"vegan", "gluten_free"}},
		{ID: "salmon", Name: "Salmon", Category: "protein", Allergens: []string{"fish"}, DietaryTags: []string{"pescatarian", "gluten_free"}},
		{ID: "oats", Name: "Oats", Category: "grain", DietaryTags: []string{"vegan"}},
	}
}

func TestGet(t *testing.T) {
	v := New(testItems())

	it, err := v.Get("tofu")
	require.NoError(t, err)
	assert.Equal(t, "Tofu", it.Name)

	_, err = v.Get("ghost")
	var nf *nutriagent.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.FoodID)
}

func TestSearch(t *testing.T) {
	v := New(testItems())

	tests := []struct {
		name             string
		tags             []string
		excludeAllergens []string
		wantIDs          []string
	}{
		{
			name:    "single tag",
			tags:    []string{"vegan"},
			wantIDs: []string{"oats", "tofu"},
		},
		{
			name:    "all tags must match",
			tags:    []string{"vegan", "gluten_free"},
			wantIDs: []string{"tofu"},
		},
		{
			name:             "allergen exclusion",
			excludeAllergens: []string{"soy", "fish"},
			wantIDs:          []string{"oats"},
		},
		{
			name:    "no matches",
			tags:    []string{"keto"},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Search(tt.tags, tt.excludeAllergens)
			ids := make([]string, 0, len(got))
			for _, it := range got {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestAllOrderedByID(t *testing.T) {
	v := New(testItems())
	all := v.All()
	require.Len(t, all, 3)
	assert.Equal(t, "oats", all[0].ID)
	assert.Equal(t, "salmon", all[1].ID)
	assert.Equal(t, "tofu", all[2].ID)
}

func TestLoad(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		src := storage.NewTestCatalogSource([]byte(`{"foods": [{"id": "oats", "name": "Oats", "calories_per_100g": 389}]}`))
		v, err := Load(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, 1, v.Len())

		it, err := v.Get("oats")
		require.NoError(t, err)
		assert.Equal(t, 389.0, it.CaloriesPer100g)
	})

	t.Run("source failure", func(t *testing.T) {
		_, err := Load(context.Background(), storage.NewTestCatalogSourceWithError())
		assert.Error(t, err)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := Load(context.Background(), storage.NewTestCatalogSource([]byte(`not json`)))
		assert.Error(t, err)
	})
}
