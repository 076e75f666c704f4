package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harithzainudin/invois-gateway/internal/application/filing"
	"github.com/harithzainudin/invois-gateway/internal/domain/repository"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/pdf"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/spreadsheet"
)

// RouterDeps are the router's dependencies.
type RouterDeps struct {
	Orchestrator *filing.Orchestrator
	Reader       *spreadsheet.Reader
	Repo         repository.SubmissionRepository
	PDFGen       *pdf.ConfirmationGenerator
}

// Router registers the API routes.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	submissions := api.Group("/submissions")
	handler := NewSubmissionHandler(deps.Orchestrator, deps.Reader, deps.Repo, deps.PDFGen)
	submissions.Post("/", handler.Submit)
	submissions.Get("/", handler.List)
	submissions.Get("/:uuid", handler.GetByDocumentUUID)
	submissions.Get("/:uuid/details", handler.Details)
	submissions.Put("/:uuid/cancel", handler.Cancel)
	submissions.Get("/:uuid/pdf", handler.ConfirmationPDF)
}
