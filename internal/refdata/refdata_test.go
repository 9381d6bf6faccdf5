package refdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = name(it)
	}
	return out
}

func TestLoad_EmbeddedDataset(t *testing.T) {
	ds, err := Load()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(ds.States), 28)
	var statesOnly, uts int
	for _, s := range ds.States {
		switch s.Type {
		case "state":
			statesOnly++
		case "union_territory":
			uts++
		}
	}
	assert.Equal(t, 28, statesOnly)
	assert.Equal(t, 8, uts)

	for _, s := range ds.States {
		assert.NotEmpty(t, ds.Cities[s.Name], "no cities for %s", s.Name)
	}

	mh, ok := ds.StateByName("Maharashtra")
	require.True(t, ok)
	assert.Equal(t, "MH", mh.Code)
}

func TestProvider_StatesInAuthoredOrder(t *testing.T) {
	p := NewProvider(MustLoad(), nil)
	states, err := p.States(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Andhra Pradesh", states[0].Name)
	assert.Equal(t, "Puducherry", states[len(states)-1].Name)
}

func TestProvider_LinkedCities(t *testing.T) {
	p := NewProvider(MustLoad(), nil)
	ctx := context.Background()

	opts, err := p.LinkedOptions(ctx, "Maharashtra")
	require.NoError(t, err)
	got := names(opts, func(o types.LinkedOption) string { return o.Name })
	assert.Contains(t, got, "Mumbai")
	assert.Contains(t, got, "Pune")

	opts, err = p.LinkedOptions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = p.LinkedOptions(ctx, "Atlantis")
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestProvider_CategoriesAndSubcategories(t *testing.T) {
	p := NewProvider(MustLoad(), nil)
	ctx := context.Background()

	roots, err := p.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Residential", "Commercial", "Agricultural", "Industrial"},
		names(roots, func(c types.Category) string { return c.Name }))

	subs, err := p.LinkedOptions(ctx, "Commercial")
	require.NoError(t, err)
	assert.Equal(t, []string{"Office Space", "Shop", "Showroom", "Warehouse"},
		names(subs, func(o types.LinkedOption) string { return o.Name }))
}

type fakeCategories struct {
	cats []types.Category
	err  error
}

func (f fakeCategories) ListCategories(context.Context) ([]types.Category, error) {
	return f.cats, f.err
}

func TestProvider_UsesCategorySource(t *testing.T) {
	src := fakeCategories{cats: []types.Category{
		{ID: "land", Name: "Land"},
		{ID: "land-plot", Name: "Plot", ParentID: "land"},
	}}
	p := NewProvider(MustLoad(), src)
	ctx := context.Background()

	roots, err := p.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Land", roots[0].Name)

	subs, err := p.LinkedOptions(ctx, "land")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Plot", subs[0].Name)

	p = NewProvider(MustLoad(), fakeCategories{err: errors.New("down")})
	_, err = p.Categories(ctx)
	assert.Error(t, err)
}

func TestFlatCategories_ParentsAndOrder(t *testing.T) {
	flat := MustLoad().FlatCategories()
	require.NotEmpty(t, flat)
	assert.Equal(t, "residential", flat[0].ID)
	assert.Empty(t, flat[0].ParentID)
	assert.Equal(t, "residential", flat[1].ParentID)
	assert.Equal(t, 0, flat[1].Order)
	assert.Equal(t, 1, flat[2].Order)
}

func TestLoadFile_RejectsConstraintViolations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cue")
	src := `
#State: {code: =~"^[A-Z]{2}$", name: string, type: "state" | "union_territory"}
states: [...#State] & [{code: "maharashtra", name: "Maharashtra", type: "state"}]
cities: {}
categories: []
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	_, err := LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
