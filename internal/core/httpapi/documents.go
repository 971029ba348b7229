package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/solatis/tagkeeper/internal/core/auth"
	"github.com/solatis/tagkeeper/internal/types"
)

type documentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type documentResponse struct {
	DocumentID types.DocumentID `json:"document_id"`
	Name       string           `json:"name"`
	Content    string           `json:"content"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func toDocumentResponse(doc *types.Document) documentResponse {
	return documentResponse{
		DocumentID: doc.DocumentID,
		Name:       doc.Name,
		Content:    doc.Content,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

// handleCreateDocument persists the document and then runs the tagging
// trigger synchronously. The trigger cannot fail the request: by the time
// it runs the document write has already succeeded.
func (s *Service) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.badRequest(w, "document name must not be empty")
		return
	}

	doc := &types.Document{
		DocumentID:     types.NewDocumentID(),
		OrganizationID: auth.OrganizationIDFromContext(r.Context()),
		Name:           req.Name,
		Content:        req.Content,
	}
	if err := s.documents.Create(r.Context(), doc); err != nil {
		s.writeError(w, r, err)
		return
	}

	// The document is committed; tagging must finish even if the client
	// has gone away or the request deadline fires.
	s.trigger.DocumentWritten(context.WithoutCancel(r.Context()), doc)

	s.writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (s *Service) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := types.ParseDocumentID(r.PathValue("documentID"))
	if err != nil {
		s.badRequest(w, "invalid document id")
		return
	}

	var req documentRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.badRequest(w, "document name must not be empty")
		return
	}

	doc := &types.Document{
		DocumentID:     documentID,
		OrganizationID: auth.OrganizationIDFromContext(r.Context()),
		Name:           req.Name,
		Content:        req.Content,
	}
	if err := s.documents.Update(r.Context(), doc); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.trigger.DocumentWritten(context.WithoutCancel(r.Context()), doc)

	s.writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

type tagRequest struct {
	Name string `json:"name"`
}

type tagResponse struct {
	TagID     types.TagID `json:"tag_id"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

func (s *Service) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.badRequest(w, "tag name must not be empty")
		return
	}

	tag := &types.Tag{
		TagID:          types.NewTagID(),
		OrganizationID: auth.OrganizationIDFromContext(r.Context()),
		Name:           req.Name,
	}
	if err := s.tags.CreateTag(r.Context(), tag); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tagResponse{
		TagID:     tag.TagID,
		Name:      tag.Name,
		CreatedAt: tag.CreatedAt,
	})
}

func (s *Service) handleListDocumentTags(w http.ResponseWriter, r *http.Request) {
	documentID, err := types.ParseDocumentID(r.PathValue("documentID"))
	if err != nil {
		s.badRequest(w, "invalid document id")
		return
	}

	org := auth.OrganizationIDFromContext(r.Context())
	if _, err := s.documents.Get(r.Context(), org, documentID); err != nil {
		s.writeError(w, r, err)
		return
	}

	tags, err := s.tags.ListDocumentTags(r.Context(), documentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]tagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tagResponse{TagID: tag.TagID, Name: tag.Name, CreatedAt: tag.CreatedAt})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tags": out})
}
