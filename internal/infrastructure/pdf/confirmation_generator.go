// Package pdf renders the filing confirmation sheet for a validated
// e-invoice.
//
// A4 layout:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Supplier name  │  Invoice no + submission date     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FILING: status / submission uid / document uuid            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  QR: public validation link on the MyInvois portal          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Legal note                                                 │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/harithzainudin/invois-gateway/internal/domain/entity"
)

// ── Palette ──────────────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 95, Blue: 80}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ────────────────────────────────────────────────────────────────

// ConfirmationGenerator renders filing confirmations with Maroto v2.
type ConfirmationGenerator struct {
	// portalBaseURL is the public MyInvois portal, environment-specific.
	portalBaseURL string
	supplierName  string
}

// NewConfirmationGenerator builds the generator. portalBaseURL is the portal
// root for the configured environment.
func NewConfirmationGenerator(portalBaseURL, supplierName string) *ConfirmationGenerator {
	return &ConfirmationGenerator{
		portalBaseURL: strings.TrimRight(portalBaseURL, "/"),
		supplierName:  supplierName,
	}
}

// ValidationLink is the public page anyone can open to verify the document.
// Only meaningful once the document is Valid and has its longId.
func (g *ConfirmationGenerator) ValidationLink(sub *entity.Submission) string {
	if sub.DocumentUUID == "" || sub.LongID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/share/%s", g.portalBaseURL, sub.DocumentUUID, sub.LongID)
}

// Generate renders the confirmation sheet and returns its bytes.
func (g *ConfirmationGenerator) Generate(sub *entity.Submission) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("e-Invoice Filing Confirmation", true).
		WithAuthor(g.supplierName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(sub))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(g.filingRows(sub)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(g.qrRows(sub)...)
	m.AddRows(g.legalRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generate confirmation: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Sections ─────────────────────────────────────────────────────────────────

func (g *ConfirmationGenerator) headerRow(sub *entity.Submission) core.Row {
	date := "—"
	if sub.DateSubmitted != nil {
		date = sub.DateSubmitted.Format("02/01/2006 15:04")
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.supplierName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("e-Invoice Filing Confirmation", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(sub.InvoiceNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 3,
			}),
			text.New("Submitted: "+date, props.Text{
				Size: 8, Align: align.Right, Top: 11, Color: colorGray,
			}),
		),
	)
}

func (g *ConfirmationGenerator) filingRows(sub *entity.Submission) []core.Row {
	field := func(label, value string) core.Row {
		if value == "" {
			value = "—"
		}
		return row.New(7).Add(
			col.New(3).Add(text.New(label, props.Text{
				Style: fontstyle.Bold, Size: 8, Top: 1,
			})),
			col.New(9).Add(text.New(value, props.Text{
				Size: 8, Top: 1, Color: colorGray,
			})),
		)
	}
	return []core.Row{
		row.New(7).Add(col.New(12).Add(text.New("FILING DETAILS", props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
		}))),
		field("Status", string(sub.Status)),
		field("Submission UID", sub.SubmissionUID),
		field("Document UUID", sub.DocumentUUID),
		field("Source file", sub.FileName),
	}
}

func (g *ConfirmationGenerator) qrRows(sub *entity.Submission) []core.Row {
	link := g.ValidationLink(sub)
	if link == "" {
		return []core.Row{
			row.New(10).Add(col.New(12).Add(
				text.New("Validation link not yet available for this document.", props.Text{
					Size: 8, Align: align.Center, Color: colorGray, Top: 3,
				}),
			)),
		}
	}
	return []core.Row{
		row.New(50).Add(
			col.New(4).Add(code.NewQr(link, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("Scan the QR code to verify this\ne-invoice on the MyInvois portal.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New(link, props.Text{
					Size: 6.5, Top: 24, Left: 3, Color: colorGray,
				}),
			),
		),
	}
}

func (g *ConfirmationGenerator) legalRow() core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(
			"This confirmation was generated by the supplier's filing gateway. "+
				"The authoritative validation record is the one held by LHDNM; "+
				"use the link above to consult it.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	))
}
