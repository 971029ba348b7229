package store

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/tagkeeper/internal/core/db"
	"github.com/solatis/tagkeeper/internal/types"
)

// TagStore persists tags and document-tag associations. AddTag is the
// idempotent write at the heart of the applier: the unique (document, tag)
// pair plus ON CONFLICT DO NOTHING guarantee at most one association no
// matter how often a rule is applied.
type TagStore struct {
	q     *db.Queries
	clock clock
}

// NewTagStore creates a tag store over loaded queries.
func NewTagStore(q *db.Queries) *TagStore {
	return &TagStore{q: q, clock: defaultClock}
}

type tagRow struct {
	TagID          string `db:"tag_id"`
	OrganizationID string `db:"organization_id"`
	Name           string `db:"name"`
	CreatedAt      string `db:"created_at"`
}

// CreateTag inserts a tag row.
func (s *TagStore) CreateTag(ctx context.Context, tag *types.Tag) error {
	ts := now(s.clock)
	tag.CreatedAt, _ = types.ParseTime(ts)
	_, err := s.q.Exec(ctx, "create-tag",
		string(tag.TagID), string(tag.OrganizationID), tag.Name, ts)
	return err
}

// TagExists reports whether the tag is present and not deleted in the
// organization.
func (s *TagStore) TagExists(ctx context.Context, org types.OrganizationID, id types.TagID) (bool, error) {
	var n int
	if err := s.q.Get(ctx, "tag-exists", &n, string(id), string(org)); err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasTag reports whether the document already carries the tag.
func (s *TagStore) HasTag(ctx context.Context, doc types.DocumentID, tag types.TagID) (bool, error) {
	var n int
	if err := s.q.Get(ctx, "has-document-tag", &n, string(doc), string(tag)); err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddTag associates a tag with a document. Returns true when a new
// association was created, false when it already existed. Safe to call
// concurrently for the same pair; exactly one caller observes true.
func (s *TagStore) AddTag(ctx context.Context, doc types.DocumentID, tag types.TagID) (bool, error) {
	res, err := s.q.Exec(ctx, "add-document-tag", string(doc), string(tag), now(s.clock))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListDocumentTags returns the tags associated with a document in
// association order.
func (s *TagStore) ListDocumentTags(ctx context.Context, doc types.DocumentID) ([]types.Tag, error) {
	var rows []tagRow
	if err := s.q.Select(ctx, "list-document-tags", &rows, string(doc)); err != nil {
		return nil, err
	}

	tags := make([]types.Tag, 0, len(rows))
	for _, row := range rows {
		createdAt, err := types.ParseTime(row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("malformed created_at for tag %s: %w", row.TagID, err)
		}
		tags = append(tags, types.Tag{
			TagID:          types.TagID(row.TagID),
			OrganizationID: types.OrganizationID(row.OrganizationID),
			Name:           row.Name,
			CreatedAt:      createdAt,
		})
	}
	return tags, nil
}

// SetClock overrides the time source for tests.
func (s *TagStore) SetClock(f func() time.Time) { s.clock = f }
