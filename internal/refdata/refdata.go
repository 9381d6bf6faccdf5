// Package refdata supplies the read-only reference lists the form engine
// draws options from: the Indian state / union-territory table, cities per
// state, and the property-category tree.
//
// The data is authored in CUE (india.cue, embedded) so constraints such as
// state codes and category ids are checked when the dataset is loaded.
package refdata

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

//go:embed india.cue
var indiaCUE []byte

// CategoryNode is one node of the authored category tree.
type CategoryNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Children []CategoryNode `json:"children"`
}

// Dataset is the decoded reference data.
type Dataset struct {
	States     []types.State       `json:"states"`
	Cities     map[string][]string `json:"cities"`
	Categories []CategoryNode      `json:"categories"`
}

// Load decodes the embedded dataset.
func Load() (*Dataset, error) {
	return decode(indiaCUE, "india.cue")
}

// LoadFile decodes a dataset from a CUE file on disk, replacing the
// embedded one.
func LoadFile(path string) (*Dataset, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference data %s: %w", path, err)
	}
	return decode(src, path)
}

// MustLoad is Load for package init and tests.
func MustLoad() *Dataset {
	ds, err := Load()
	if err != nil {
		panic(err)
	}
	return ds
}

func decode(src []byte, filename string) (*Dataset, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", filename, err)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filename, err)
	}

	var ds Dataset
	if err := val.LookupPath(cue.ParsePath("states")).Decode(&ds.States); err != nil {
		return nil, fmt.Errorf("decoding states: %w", err)
	}
	if err := val.LookupPath(cue.ParsePath("cities")).Decode(&ds.Cities); err != nil {
		return nil, fmt.Errorf("decoding cities: %w", err)
	}
	if err := val.LookupPath(cue.ParsePath("categories")).Decode(&ds.Categories); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}
	return &ds, nil
}

// FlatCategories returns the category tree depth-first with ParentID set and
// Order numbering siblings from zero.
func (ds *Dataset) FlatCategories() []types.Category {
	var out []types.Category
	var walk func(nodes []CategoryNode, parent string)
	walk = func(nodes []CategoryNode, parent string) {
		for i, n := range nodes {
			out = append(out, types.Category{ID: n.ID, Name: n.Name, ParentID: parent, Order: i})
			walk(n.Children, n.ID)
		}
	}
	walk(ds.Categories, "")
	return out
}

// CategorySource looks up categories from a slowly-changing backing store.
type CategorySource interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
}

// Provider answers the option lookups of the form engine. States and cities
// come from the dataset; categories come from the CategorySource when one is
// set, otherwise from the dataset tree.
type Provider struct {
	ds         *Dataset
	categories CategorySource
}

// NewProvider builds a Provider over ds. categories may be nil.
func NewProvider(ds *Dataset, categories CategorySource) *Provider {
	return &Provider{ds: ds, categories: categories}
}

func (p *Provider) allCategories(ctx context.Context) ([]types.Category, error) {
	if p.categories != nil {
		return p.categories.ListCategories(ctx)
	}
	return p.ds.FlatCategories(), nil
}

// Categories returns the top-level property categories in authored order.
func (p *Provider) Categories(ctx context.Context) ([]types.Category, error) {
	all, err := p.allCategories(ctx)
	if err != nil {
		return nil, err
	}
	var roots []types.Category
	for _, c := range all {
		if c.ParentID == "" {
			roots = append(roots, c)
		}
	}
	return roots, nil
}

// States returns the state / union-territory table in authored order.
func (p *Provider) States(_ context.Context) ([]types.State, error) {
	return append([]types.State(nil), p.ds.States...), nil
}

// LinkedOptions returns the options keyed by a parent display value: the
// cities of a state, or the sub-categories of a category. An unknown parent
// yields no options.
func (p *Provider) LinkedOptions(ctx context.Context, parentValue string) ([]types.LinkedOption, error) {
	if parentValue == "" {
		return nil, nil
	}
	if cities, ok := p.ds.Cities[parentValue]; ok {
		out := make([]types.LinkedOption, len(cities))
		for i, c := range cities {
			out[i] = types.LinkedOption{ID: parentValue + "/" + c, Name: c}
		}
		return out, nil
	}

	all, err := p.allCategories(ctx)
	if err != nil {
		return nil, err
	}
	var parentID string
	for _, c := range all {
		if c.Name == parentValue || c.ID == parentValue {
			parentID = c.ID
			break
		}
	}
	if parentID == "" {
		return nil, nil
	}
	var out []types.LinkedOption
	for _, c := range all {
		if c.ParentID == parentID {
			out = append(out, types.LinkedOption{ID: c.ID, Name: c.Name})
		}
	}
	return out, nil
}

// StateByName finds a state by display name.
func (ds *Dataset) StateByName(name string) (types.State, bool) {
	for _, s := range ds.States {
		if s.Name == name {
			return s, true
		}
	}
	return types.State{}, false
}
