package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/tagkeeper/internal/core/db"
	"github.com/solatis/tagkeeper/internal/types"
)

// DocumentStore persists documents and serves the bulk scan cursor.
type DocumentStore struct {
	q     *db.Queries
	clock clock
}

// NewDocumentStore creates a document store over loaded queries.
func NewDocumentStore(q *db.Queries) *DocumentStore {
	return &DocumentStore{q: q, clock: defaultClock}
}

type documentRow struct {
	DocumentID     string `db:"document_id"`
	OrganizationID string `db:"organization_id"`
	Name           string `db:"name"`
	Content        string `db:"content"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (r documentRow) toDomain() (types.Document, error) {
	createdAt, err := types.ParseTime(r.CreatedAt)
	if err != nil {
		return types.Document{}, fmt.Errorf("malformed created_at for document %s: %w", r.DocumentID, err)
	}
	updatedAt, err := types.ParseTime(r.UpdatedAt)
	if err != nil {
		return types.Document{}, fmt.Errorf("malformed updated_at for document %s: %w", r.DocumentID, err)
	}
	return types.Document{
		DocumentID:     types.DocumentID(r.DocumentID),
		OrganizationID: types.OrganizationID(r.OrganizationID),
		Name:           r.Name,
		Content:        r.Content,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// CreateOrganization inserts an organization row.
func (s *DocumentStore) CreateOrganization(ctx context.Context, id types.OrganizationID, name string) error {
	_, err := s.q.Exec(ctx, "create-organization", string(id), name, now(s.clock))
	return err
}

// OrganizationExists reports whether the organization is present and not
// deleted. The orchestrator calls this between batches to detect
// mid-run organization deletion.
func (s *DocumentStore) OrganizationExists(ctx context.Context, org types.OrganizationID) (bool, error) {
	var n int
	if err := s.q.Get(ctx, "organization-exists", &n, string(org)); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create persists a new document. Sets CreatedAt/UpdatedAt on doc.
func (s *DocumentStore) Create(ctx context.Context, doc *types.Document) error {
	ts := now(s.clock)
	doc.CreatedAt, _ = types.ParseTime(ts)
	doc.UpdatedAt = doc.CreatedAt

	_, err := s.q.Exec(ctx, "create-document",
		string(doc.DocumentID), string(doc.OrganizationID),
		doc.Name, doc.Content, ts, ts)
	return err
}

// Update rewrites name and content.
// Returns types.ErrDocumentNotFound when absent or deleted.
func (s *DocumentStore) Update(ctx context.Context, doc *types.Document) error {
	ts := now(s.clock)
	res, err := s.q.Exec(ctx, "update-document",
		doc.Name, doc.Content, ts,
		string(doc.DocumentID), string(doc.OrganizationID))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrDocumentNotFound
	}
	doc.UpdatedAt, _ = types.ParseTime(ts)
	return nil
}

// Get loads one document scoped to an organization.
func (s *DocumentStore) Get(ctx context.Context, org types.OrganizationID, id types.DocumentID) (*types.Document, error) {
	var row documentRow
	err := s.q.Get(ctx, "get-document", &row, string(id), string(org))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	doc, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListBatch returns up to limit non-deleted documents after the cursor in
// stable (created_at, document_id) order. An exhausted scan returns an
// empty slice.
func (s *DocumentStore) ListBatch(ctx context.Context, org types.OrganizationID, cursor types.DocumentCursor, limit int) ([]types.Document, error) {
	var rows []documentRow
	err := s.q.Select(ctx, "list-document-batch", &rows,
		string(org), cursor.CreatedAt, cursor.CreatedAt, string(cursor.ID), limit)
	if err != nil {
		return nil, err
	}

	docs := make([]types.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// SetClock overrides the time source for tests.
func (s *DocumentStore) SetClock(f func() time.Time) { s.clock = f }
