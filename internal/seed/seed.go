// Package seed loads the reference categories and the starter form templates
// into a store. Both steps skip when data already exists.
package seed

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/refdata"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// templateNS derives stable template ids from file names.
var templateNS = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vengrow/form-templates"))

// Templates parses the embedded starter templates in file name order. Each
// is a draft whose id is derived from its file name.
func Templates() ([]*formschema.FormTemplate, error) {
	names, err := fs.Glob(templateFS, "templates/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	now := time.Now().UTC()
	out := make([]*formschema.FormTemplate, 0, len(names))
	for _, name := range names {
		data, err := templateFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		t, err := formschema.ParseTemplate(data, name)
		if err != nil {
			return nil, err
		}
		t.ID = uuid.NewSHA1(templateNS, []byte(path.Base(name))).String()
		t.CreatedAt, t.UpdatedAt = now, now
		out = append(out, t)
	}
	return out, nil
}

// SeedCategories writes the dataset's category tree unless categories exist.
func SeedCategories(ctx context.Context, st store.Store, ds *refdata.Dataset, logger *zap.Logger) error {
	existing, err := st.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("checking categories: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("categories already seeded, skipping", zap.Int("count", len(existing)))
		return nil
	}
	cats := ds.FlatCategories()
	if err := st.SaveCategories(ctx, cats); err != nil {
		return err
	}
	logger.Info("seeded categories", zap.Int("count", len(cats)))
	return nil
}

// SeedTemplates publishes the starter templates unless any template exists.
// A starter template with schema errors fails the seed.
func SeedTemplates(ctx context.Context, st store.Store, logger *zap.Logger) error {
	existing, err := st.ListTemplates(ctx, store.TemplateFilter{})
	if err != nil {
		return fmt.Errorf("checking templates: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("templates already seeded, skipping", zap.Int("count", len(existing)))
		return nil
	}

	tpls, err := Templates()
	if err != nil {
		return err
	}
	for _, t := range tpls {
		if err := formschema.Check(t).Err(); err != nil {
			return fmt.Errorf("starter template %q: %w", t.Name, err)
		}
		if err := t.Publish(); err != nil {
			return err
		}
		if err := st.SaveTemplate(ctx, t); err != nil {
			return err
		}
		logger.Info("seeded template", zap.String("id", t.ID), zap.String("name", t.Name))
	}
	return nil
}

// Run seeds categories, then templates.
func Run(ctx context.Context, st store.Store, ds *refdata.Dataset, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("seed")
	if err := SeedCategories(ctx, st, ds, logger); err != nil {
		return err
	}
	return SeedTemplates(ctx, st, logger)
}
