package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"airbnb-similarity/models"
)

const (
	upsertBatchSize = 50
	lookupChunkSize = 500
)

// sqlStore implements Store over database/sql for any dialect.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	columns string
}

func newSQLStore(db *sql.DB, d dialect) *sqlStore {
	return &sqlStore{db: db, dialect: d, columns: strings.Join(columnNames(), ", ")}
}

func (s *sqlStore) migrate(ctx context.Context) error {
	stmts := append([]string{s.dialect.createTable()}, s.dialect.indexes()...)
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// FetchAll retrieves all stored listings, ordered by id.
func (s *sqlStore) FetchAll(ctx context.Context) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", s.columns, tableName, models.ColID))
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", s.dialect.name, err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.dialect.name, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *sqlStore) List(ctx context.Context, offset, limit int) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %s OFFSET %s",
			s.columns, tableName, models.ColID, s.dialect.placeholder(1), s.dialect.placeholder(2)),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: list: %w", s.dialect.name, err)
	}
	defer rows.Close()

	listings := []*models.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.dialect.name, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *sqlStore) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", s.columns, tableName, models.ColID, s.dialect.placeholder(1)),
		id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: get listing %d: %w", s.dialect.name, id, err)
	}
	return l, nil
}

// GetByIDs binds at most lookupChunkSize ids per statement.
func (s *sqlStore) GetByIDs(ctx context.Context, ids []int64) ([]*models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found := make(map[int64]*models.Listing, len(ids))
	for i := 0; i < len(ids); i += lookupChunkSize {
		end := i + lookupChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.lookupChunk(ctx, ids[i:end], found); err != nil {
			return nil, err
		}
	}

	out := make([]*models.Listing, 0, len(found))
	for _, id := range ids {
		if l, ok := found[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *sqlStore) lookupChunk(ctx context.Context, ids []int64, found map[int64]*models.Listing) error {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = s.dialect.placeholder(i + 1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)", s.columns, tableName, models.ColID, strings.Join(marks, ", ")),
		args...)
	if err != nil {
		return fmt.Errorf("%s: get listings: %w", s.dialect.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return fmt.Errorf("%s: scan row: %w", s.dialect.name, err)
		}
		found[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: get listings: %w", s.dialect.name, err)
	}
	return nil
}

// UpsertAll batch-writes listings inside one transaction. Nothing is
// committed unless every batch succeeds.
func (s *sqlStore) UpsertAll(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.name, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := 0; i < len(listings); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := s.upsertBatch(ctx, tx, listings[i:end]); err != nil {
			return fmt.Errorf("%s: upsert batch at %d: %w", s.dialect.name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.name, err)
	}
	return nil
}

func (s *sqlStore) upsertBatch(ctx context.Context, tx *sql.Tx, batch []*models.Listing) error {
	width := len(listingColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*width)

	for idx, l := range batch {
		base := idx * width
		marks := make([]string, width)
		for j := range marks {
			marks[j] = s.dialect.placeholder(base + j + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(marks, ",")+")")
		valueArgs = append(valueArgs, listingValues(l)...)
	}

	prefix, suffix := s.dialect.upsert(columnNames())
	_, err := tx.ExecContext(ctx, prefix+strings.Join(valueStrings, ",")+suffix, valueArgs...)
	return err
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
