package api

import (
	"rag/service"
	"rag/types"

	"github.com/gofiber/fiber/v2"
)

type RagHandler struct {
	svc *service.Service
}

func NewRagHandler(svc *service.Service) *RagHandler {
	return &RagHandler{
		svc: svc,
	}
}

// HandleProcessDocument ingests one markdown document supplied as raw text.
func (h *RagHandler) HandleProcessDocument(c *fiber.Ctx) error {
	var params types.ProcessParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	// Advisory duplicate check: not transactional, two concurrent callers
	// can still both pass it.
	docs, err := h.svc.ListDocuments(c.Context())
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if doc.Name == params.Name {
			return NewError(fiber.StatusConflict, "document with this name already exists: "+doc.ID)
		}
	}

	result, err := h.svc.ProcessDocument(c.Context(), params.Content, service.ProcessOptions{
		DocumentName: params.Name,
		Version:      params.Version,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *RagHandler) HandleListDocuments(c *fiber.Ctx) error {
	docs, err := h.svc.ListDocuments(c.Context())
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []types.Document{}
	}
	return c.JSON(docs)
}

func (h *RagHandler) HandleDeleteDocument(c *fiber.Ctx) error {
	docID := c.Params("id")
	if docID == "" {
		return ErrBadRequest()
	}
	if err := h.requireDocument(c, docID); err != nil {
		return err
	}
	if err := h.svc.DeleteDocument(c.Context(), docID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": docID})
}

func (h *RagHandler) HandleGetChunks(c *fiber.Ctx) error {
	docID := c.Params("id")
	if docID == "" {
		return ErrBadRequest()
	}
	if err := h.requireDocument(c, docID); err != nil {
		return err
	}
	chunks, err := h.svc.GetChunks(c.Context(), docID)
	if err != nil {
		return err
	}
	if chunks == nil {
		chunks = []types.Chunk{}
	}
	for i := range chunks {
		if chunks[i].Tags == nil {
			chunks[i].Tags = []string{}
		}
	}
	return c.JSON(chunks)
}

// requireDocument returns a 404 error when docID is not an active document.
func (h *RagHandler) requireDocument(c *fiber.Ctx, docID string) error {
	docs, err := h.svc.ListDocuments(c.Context())
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if doc.ID == docID {
			return nil
		}
	}
	return ErrNotFound(docID, "document")
}

func (h *RagHandler) HandleSearch(c *fiber.Ctx) error {
	var params types.SearchParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	results, err := h.svc.Search(c.Context(), params.Query, types.SearchOptions{
		Limit:     params.Limit,
		Tags:      params.Tags,
		Threshold: params.Threshold,
	})
	if err != nil {
		return err
	}
	if results == nil {
		results = []types.SearchResult{}
	}
	for i := range results {
		if results[i].Tags == nil {
			results[i].Tags = []string{}
		}
	}

	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}
