package handlers

import (
	"io"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// KnowledgeHandler exposes the assistant, FAQ and corpus administration.
type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
	maxUpload int64
}

// NewKnowledgeHandler constructs handler.
func NewKnowledgeHandler(knowledgeService *service.KnowledgeService, maxUpload int64) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledgeService, maxUpload: maxUpload}
}

// ListFiles GET /api/ai/files/:type.
func (h *KnowledgeHandler) ListFiles(c *fiber.Ctx) error {
	files, err := h.knowledge.ListFiles(c.UserContext(), domain.Corpus(c.Params("type")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CorpusFilesResponse{Files: files}})
}

// UploadKnowledge POST /api/ai/admin/upload-knowledge.
func (h *KnowledgeHandler) UploadKnowledge(c *fiber.Ctx) error {
	return h.upload(c, domain.CorpusKB)
}

// UploadFAQ POST /api/ai/admin/upload-faq.
func (h *KnowledgeHandler) UploadFAQ(c *fiber.Ctx) error {
	return h.upload(c, domain.CorpusFAQ)
}

func (h *KnowledgeHandler) upload(c *fiber.Ctx, corpus domain.Corpus) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	fh := formFile(c, "file")
	if fh == nil {
		return apperrors.NewValidationError("file is required", map[string]any{"field": "file"})
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return apperrors.NewValidationError("file exceeds size limit", map[string]any{"field": "file", "max_bytes": h.maxUpload})
	}
	f, err := fh.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", map[string]any{"field": "file"})
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	name, chunks, err := h.knowledge.Upload(c.UserContext(), user, corpus, fh.Filename, content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CorpusUploadResponse{Corpus: corpus, Filename: name, Chunks: chunks}})
}

// DeleteFile DELETE /api/ai/files/:type/:filename.
func (h *KnowledgeHandler) DeleteFile(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filename, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return apperrors.NewValidationError("invalid filename", nil)
	}
	corpus := domain.Corpus(c.Params("type"))
	if err := h.knowledge.Delete(c.UserContext(), user, corpus, filename); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "Deleted " + filename}})
}

// Ask POST /api/ai/ask.
func (h *KnowledgeHandler) Ask(c *fiber.Ctx) error {
	var req dto.AskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	answer, err := h.knowledge.Ask(c.UserContext(), req.Question)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AskResponse{Question: req.Question, Answer: answer}})
}

// ListFAQs GET /api/ai/faq/all.
func (h *KnowledgeHandler) ListFAQs(c *fiber.Ctx) error {
	entries, err := h.knowledge.FAQs(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFAQResponses(entries)})
}

// SearchFAQs GET /api/ai/faq/search?q=.
func (h *KnowledgeHandler) SearchFAQs(c *fiber.Ctx) error {
	entries, err := h.knowledge.SearchFAQs(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFAQResponses(entries)})
}
