package resource

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/LetterVault/lettervault-core/pkg/clients/postgres"
	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// defaultListLimit is the page size applied when a [ListFilter] carries no
// explicit limit.
const defaultListLimit = 50

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

// Store is the persistence interface for letter metadata. [PgxStore] is
// the PostgreSQL implementation; tests substitute fakes.
type Store interface {
	// FindOwned returns the resource with the given id if it belongs to
	// the given owner. An absent resource and a resource owned by someone
	// else both return a *[lverr.Error] with code
	// [lverr.CodeNotFoundResource].
	FindOwned(ctx context.Context, id, ownerID uuid.UUID) (*Resource, error)

	// Insert persists a new resource record.
	Insert(ctx context.Context, res *Resource) error

	// Delete removes the resource with the given id if it belongs to the
	// given owner, with the same not-found semantics as FindOwned.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error

	// ListByOwner returns the owner's resources, newest first, narrowed
	// and paged by the filter.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]*Resource, error)
}

// ---------------------------------------------------------------------------
// PgxStore
// ---------------------------------------------------------------------------

// PgxStore is the PostgreSQL-backed [Store], built on the shared
// [postgres.Client] so every statement carries tracing and error
// classification.
type PgxStore struct {
	db *postgres.Client
}

// Compile-time assertion that PgxStore implements Store.
var _ Store = (*PgxStore)(nil)

// NewPgxStore creates a Store backed by the given PostgreSQL client.
func NewPgxStore(db *postgres.Client) *PgxStore {
	return &PgxStore{db: db}
}

// letterColumns is the column list shared by all letter queries, in scan
// order.
const letterColumns = `id, owner_id, object_key, content_type, direction,
	title, notes, mail_date, created_at`

const (
	// The combined id+owner predicate is what makes other-owner lookups
	// indistinguishable from absent ids: both simply match no row.
	sqlFindOwned = `SELECT ` + letterColumns + `
		FROM letters WHERE id = $1 AND owner_id = $2`

	sqlInsertLetter = `INSERT INTO letters
		(id, owner_id, object_key, content_type, direction,
		 title, notes, mail_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	sqlDeleteOwned = `DELETE FROM letters WHERE id = $1 AND owner_id = $2`

	sqlListByOwner = `SELECT ` + letterColumns + `
		FROM letters WHERE owner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	sqlListByOwnerDirection = `SELECT ` + letterColumns + `
		FROM letters WHERE owner_id = $1 AND direction = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
)

// FindOwned returns the resource with the given id if it belongs to the
// given owner.
func (s *PgxStore) FindOwned(ctx context.Context, id, ownerID uuid.UUID) (*Resource, error) {
	row := s.db.QueryRow(ctx, sqlFindOwned, id, ownerID)

	res, err := scanResource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lverr.New(lverr.CodeNotFoundResource, "resource: not found")
		}
		return nil, mapStoreError(err, "resource: lookup failed")
	}
	return res, nil
}

// Insert persists a new resource record.
func (s *PgxStore) Insert(ctx context.Context, res *Resource) error {
	_, err := s.db.Exec(ctx, sqlInsertLetter,
		res.ID, res.OwnerID, res.ObjectKey, res.ContentType, res.Direction,
		res.Title, res.Notes, res.MailDate, res.CreatedAt,
	)
	if err != nil {
		return mapStoreError(err, "resource: failed to insert record")
	}
	return nil
}

// Delete removes the resource with the given id if it belongs to the
// given owner.
func (s *PgxStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, sqlDeleteOwned, id, ownerID)
	if err != nil {
		return mapStoreError(err, "resource: failed to delete record")
	}
	if tag.RowsAffected() == 0 {
		return lverr.New(lverr.CodeNotFoundResource, "resource: not found")
	}
	return nil
}

// ListByOwner returns the owner's resources, newest first.
func (s *PgxStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]*Resource, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		rows pgx.Rows
		err  error
	)
	if filter.Direction != "" {
		rows, err = s.db.Query(ctx, sqlListByOwnerDirection, ownerID, filter.Direction, limit, offset)
	} else {
		rows, err = s.db.Query(ctx, sqlListByOwner, ownerID, limit, offset)
	}
	if err != nil {
		return nil, mapStoreError(err, "resource: list failed")
	}
	defer rows.Close()

	var results []*Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, mapStoreError(err, "resource: list scan failed")
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err, "resource: list failed")
	}
	return results, nil
}

// scanResource scans one row in letterColumns order.
func scanResource(row pgx.Row) (*Resource, error) {
	var res Resource
	err := row.Scan(
		&res.ID, &res.OwnerID, &res.ObjectKey, &res.ContentType, &res.Direction,
		&res.Title, &res.Notes, &res.MailDate, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// mapStoreError classifies a database error: platform errors pass through
// unchanged, anything else wraps as a database failure.
func mapStoreError(err error, message string) error {
	var lvErr *lverr.Error
	if errors.As(err, &lvErr) {
		return lvErr
	}
	return lverr.Wrap(err, lverr.CodeInternalDatabase, message)
}
