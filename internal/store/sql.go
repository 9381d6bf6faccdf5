package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

const (
	templatesTable   = "form_templates"
	categoriesTable  = "categories"
	listingsTable    = "listings"
	transitionsTable = "listing_transitions"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS form_templates (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		seller_type TEXT NOT NULL,
		category_id TEXT NOT NULL,
		version     INTEGER NOT NULL,
		status      TEXT NOT NULL,
		doc         TEXT NOT NULL,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_status ON form_templates (status, seller_type, category_id)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT '',
		ord       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id                TEXT PRIMARY KEY,
		template_id       TEXT NOT NULL REFERENCES form_templates (id),
		template_version  INTEGER NOT NULL,
		owner_id          TEXT NOT NULL,
		state             TEXT NOT NULL,
		values_json       TEXT NOT NULL DEFAULT '{}',
		last_approved     TEXT,
		rejection_reason  TEXT NOT NULL DEFAULT '',
		created_at        INTEGER NOT NULL,
		updated_at        INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS listing_transitions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id  TEXT NOT NULL REFERENCES listings (id),
		from_state  TEXT NOT NULL,
		to_state    TEXT NOT NULL,
		actor       TEXT NOT NULL,
		role        TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		on_edit     INTEGER NOT NULL DEFAULT 0,
		occurred_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transitions_listing ON listing_transitions (listing_id, id)`,
}

var listingColumns = []string{
	"id", "template_id", "template_version", "owner_id", "state", "values_json",
	"last_approved", "rejection_reason", "created_at", "updated_at",
}

// SQLStore implements Store on SQLite through ent's SQL driver and query
// builders. Timestamps are stored as Unix nanoseconds.
type SQLStore struct {
	drv    *entsql.Driver
	logger *zap.Logger
}

// OpenSQLite opens the database at dsn, enables foreign keys and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	s := &SQLStore{drv: entsql.OpenDB(dialect.SQLite, db), logger: logger.Named("store")}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Driver exposes the ent driver so other SQL-backed components share the
// connection.
func (s *SQLStore) Driver() *entsql.Driver { return s.drv }

// Migrate creates any missing tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, q := range schema {
		if err := s.drv.Exec(ctx, q, []any{}, nil); err != nil {
			return fmt.Errorf("running schema migration: %w", err)
		}
	}
	s.logger.Debug("schema up to date", zap.Int("statements", len(schema)))
	return nil
}

func (s *SQLStore) Close() error { return s.drv.Close() }

func builder() *entsql.DialectBuilder { return entsql.Dialect(dialect.SQLite) }

// execQuerier is satisfied by both the driver and a transaction.
type execQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// ── Templates ───────────────────────────────────────────────────────────────

func (s *SQLStore) SaveTemplate(ctx context.Context, t *formschema.FormTemplate) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding template %s: %w", t.ID, err)
	}
	query, args := builder().Insert(templatesTable).
		Columns("id", "name", "seller_type", "category_id", "version", "status", "doc", "created_at", "updated_at").
		Values(t.ID, t.Name, string(t.SellerType), t.CategoryID, t.Version, string(t.Status), string(doc),
			t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("saving template %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLStore) GetTemplate(ctx context.Context, id string) (*formschema.FormTemplate, error) {
	ts, err := s.queryTemplates(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return ts[0], nil
}

func (s *SQLStore) ListTemplates(ctx context.Context, f TemplateFilter) ([]*formschema.FormTemplate, error) {
	var preds []*entsql.Predicate
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", string(f.Status)))
	}
	if f.SellerType != "" {
		preds = append(preds, entsql.EQ("seller_type", string(f.SellerType)))
	}
	if f.CategoryID != "" {
		preds = append(preds, entsql.EQ("category_id", f.CategoryID))
	}
	return s.queryTemplates(ctx, preds...)
}

func (s *SQLStore) queryTemplates(ctx context.Context, preds ...*entsql.Predicate) ([]*formschema.FormTemplate, error) {
	sel := builder().Select("doc").From(entsql.Table(templatesTable)).OrderBy("created_at", "id")
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args := sel.Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var out []*formschema.FormTemplate
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		var t formschema.FormTemplate
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, fmt.Errorf("decoding template: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ── Categories ──────────────────────────────────────────────────────────────

func (s *SQLStore) SaveCategories(ctx context.Context, cats []types.Category) error {
	if len(cats) == 0 {
		return nil
	}
	ins := builder().Insert(categoriesTable).Columns("id", "name", "parent_id", "ord")
	for _, c := range cats {
		ins.Values(c.ID, c.Name, c.ParentID, c.Order)
	}
	query, args := ins.OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("saving categories: %w", err)
	}
	return nil
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]types.Category, error) {
	query, args := builder().Select("id", "name", "parent_id", "ord").
		From(entsql.Table(categoriesTable)).
		OrderBy("parent_id", "ord").
		Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()
	var out []types.Category
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.Order); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ── Listings ────────────────────────────────────────────────────────────────

func (s *SQLStore) CreateListing(ctx context.Context, l *Listing) error {
	row, err := listingRow(l)
	if err != nil {
		return err
	}
	if existing, _ := s.getListing(ctx, s.drv, l.ID); existing != nil {
		return fmt.Errorf("listing %s: %w", l.ID, ErrConflict)
	}
	query, args := builder().Insert(listingsTable).Columns(listingColumns...).Values(row...).Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("creating listing: %w", err)
	}
	return nil
}

func (s *SQLStore) GetListing(ctx context.Context, id string) (*Listing, error) {
	l, err := s.getListing(ctx, s.drv, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return l, nil
}

// UpdateListing runs the read, the mutation, the write and the history append
// in one transaction.
func (s *SQLStore) UpdateListing(ctx context.Context, id string, fn MutateFunc) (_ *Listing, err error) {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				s.logger.Warn("rollback failed", zap.String("listing", id), zap.Error(rerr))
			}
		}
	}()

	cur, err := s.getListing(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	tr, err := fn(cur)
	if err != nil {
		return nil, err
	}
	cur.ID = id
	cur.UpdatedAt = time.Now()

	values, err := encodeValues(cur.Values)
	if err != nil {
		return nil, err
	}
	lastApproved, err := encodeOptionalValues(cur.LastApprovedValues)
	if err != nil {
		return nil, err
	}
	query, args := builder().Update(listingsTable).
		Set("state", string(cur.State)).
		Set("values_json", values).
		Set("last_approved", lastApproved).
		Set("rejection_reason", cur.RejectionReason).
		Set("updated_at", cur.UpdatedAt.UnixNano()).
		Where(entsql.EQ("id", id)).
		Query()
	if err = tx.Exec(ctx, query, args, nil); err != nil {
		return nil, fmt.Errorf("updating listing %s: %w", id, err)
	}

	if tr != nil {
		tr.ListingID = id
		if tr.OccurredAt.IsZero() {
			tr.OccurredAt = cur.UpdatedAt
		}
		query, args := builder().Insert(transitionsTable).
			Columns("listing_id", "from_state", "to_state", "actor", "role", "reason", "on_edit", "occurred_at").
			Values(id, string(tr.From), string(tr.To), tr.Actor, string(tr.Role), tr.Reason, boolInt(tr.OnEdit), tr.OccurredAt.UnixNano()).
			Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return nil, fmt.Errorf("recording transition: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing listing %s: %w", id, err)
	}
	return cur, nil
}

func (s *SQLStore) History(ctx context.Context, listingID string) ([]Transition, error) {
	if _, err := s.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	query, args := builder().Select("from_state", "to_state", "actor", "role", "reason", "on_edit", "occurred_at").
		From(entsql.Table(transitionsTable)).
		Where(entsql.EQ("listing_id", listingID)).
		OrderBy("id").
		Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			tr             Transition
			from, to, role string
			onEdit         int
			occurred       int64
		)
		if err := rows.Scan(&from, &to, &tr.Actor, &role, &tr.Reason, &onEdit, &occurred); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		tr.ListingID = listingID
		tr.From, tr.To, tr.Role = workflow.State(from), workflow.State(to), workflow.Actor(role)
		tr.OnEdit = onEdit != 0
		tr.OccurredAt = time.Unix(0, occurred)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// getListing returns nil without error when id does not exist.
func (s *SQLStore) getListing(ctx context.Context, q execQuerier, id string) (*Listing, error) {
	query, args := builder().Select(listingColumns...).
		From(entsql.Table(listingsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying listing %s: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}

	var (
		l                Listing
		state, values    string
		lastApproved     sql.NullString
		created, updated int64
	)
	err := rows.Scan(&l.ID, &l.TemplateID, &l.TemplateVersion, &l.OwnerID, &state, &values,
		&lastApproved, &l.RejectionReason, &created, &updated)
	if err != nil {
		return nil, fmt.Errorf("scanning listing %s: %w", id, err)
	}
	l.State = workflow.State(state)
	l.CreatedAt, l.UpdatedAt = time.Unix(0, created), time.Unix(0, updated)
	if err := json.Unmarshal([]byte(values), &l.Values); err != nil {
		return nil, fmt.Errorf("decoding listing %s values: %w", id, err)
	}
	if l.Values == nil {
		l.Values = engine.Values{}
	}
	if lastApproved.Valid {
		if err := json.Unmarshal([]byte(lastApproved.String), &l.LastApprovedValues); err != nil {
			return nil, fmt.Errorf("decoding listing %s approved values: %w", id, err)
		}
	}
	return &l, nil
}

func listingRow(l *Listing) ([]any, error) {
	values, err := encodeValues(l.Values)
	if err != nil {
		return nil, err
	}
	lastApproved, err := encodeOptionalValues(l.LastApprovedValues)
	if err != nil {
		return nil, err
	}
	return []any{
		l.ID, l.TemplateID, l.TemplateVersion, l.OwnerID, string(l.State), values,
		lastApproved, l.RejectionReason, l.CreatedAt.UnixNano(), l.UpdatedAt.UnixNano(),
	}, nil
}

func encodeValues(v engine.Values) (string, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding values: %w", err)
	}
	return string(b), nil
}

func encodeOptionalValues(v engine.Values) (any, error) {
	if v == nil {
		return nil, nil
	}
	return encodeValues(v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
