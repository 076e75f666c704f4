// Package http exposes the gateway's REST surface on Fiber.
package http

import (
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/harithzainudin/invois-gateway/internal/application/dto"
	"github.com/harithzainudin/invois-gateway/internal/application/filing"
	"github.com/harithzainudin/invois-gateway/internal/domain/repository"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/pdf"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/spreadsheet"
)

// SubmissionHandler handles the filing endpoints.
type SubmissionHandler struct {
	orchestrator *filing.Orchestrator
	reader       *spreadsheet.Reader
	repo         repository.SubmissionRepository
	pdfGen       *pdf.ConfirmationGenerator
}

// NewSubmissionHandler builds the handler.
func NewSubmissionHandler(
	orchestrator *filing.Orchestrator,
	reader *spreadsheet.Reader,
	repo repository.SubmissionRepository,
	pdfGen *pdf.ConfirmationGenerator,
) *SubmissionHandler {
	return &SubmissionHandler{orchestrator: orchestrator, reader: reader, repo: repo, pdfGen: pdfGen}
}

// Submit consumes the spreadsheet at the given path and files it.
// POST /api/submissions
func (h *SubmissionHandler) Submit(c *fiber.Ctx) error {
	var in dto.SubmitFileRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	if in.FilePath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "filePath is required"})
	}

	docs, err := h.reader.Read(in.FilePath)
	if err != nil {
		var parseErr *spreadsheet.ParseError
		if errors.As(err, &parseErr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PARSE_ERROR", Message: parseErr.Error()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "FILE_ERROR", Message: err.Error()})
	}

	result, err := h.orchestrator.Submit(c.Context(), filing.SubmitInput{
		FilePath:  in.FilePath,
		FileName:  filepath.Base(in.FilePath),
		Documents: docs,
	})
	if err != nil {
		var preErr *filing.PrevalidationError
		if errors.As(err, &preErr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PREVALIDATION", Message: preErr.Error()})
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SUBMISSION_FAILED", Message: err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.SubmitResultResponse{
		SubmissionUID: result.SubmissionUID,
		InvoiceNumber: result.InvoiceNumber,
		DocumentUUID:  result.DocumentUUID,
		Status:        string(result.Status),
		Errors:        result.Errors,
	})
}

// List returns the submission records, newest first.
// GET /api/submissions
func (h *SubmissionHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invalid pagination"})
	}
	page.DefaultPage()

	subs, err := h.repo.List(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	items := make([]dto.SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		items = append(items, dto.NewSubmissionResponse(s))
	}
	return c.JSON(dto.SubmissionListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// GetByDocumentUUID returns one record by its authority document uuid.
// GET /api/submissions/:uuid
func (h *SubmissionHandler) GetByDocumentUUID(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "uuid is required"})
	}
	sub, err := h.repo.GetByDocumentUUID(c.Context(), uuid)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if sub == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "submission not found"})
	}
	return c.JSON(dto.NewSubmissionResponse(sub))
}

// Details proxies the authority's detailed document view.
// GET /api/submissions/:uuid/details
func (h *SubmissionHandler) Details(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "uuid is required"})
	}
	details, err := h.orchestrator.Details(c.Context(), uuid)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "UPSTREAM", Message: err.Error()})
	}
	return c.JSON(details)
}

// Cancel withdraws a filed document.
// PUT /api/submissions/:uuid/cancel
func (h *SubmissionHandler) Cancel(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "uuid is required"})
	}
	var in dto.CancelDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	if in.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "reason is required"})
	}

	if err := h.orchestrator.Cancel(c.Context(), uuid, in.Reason); err != nil {
		if errors.Is(err, filing.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "submission not found"})
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "CANCEL_FAILED", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ConfirmationPDF renders the filing confirmation sheet.
// GET /api/submissions/:uuid/pdf
func (h *SubmissionHandler) ConfirmationPDF(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "uuid is required"})
	}
	sub, err := h.repo.GetByDocumentUUID(c.Context(), uuid)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if sub == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "submission not found"})
	}

	data, genErr := h.pdfGen.Generate(sub)
	if genErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "PDF_ERROR", Message: genErr.Error()})
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="confirmation-`+sub.InvoiceNumber+`.pdf"`)
	return c.Send(data)
}
