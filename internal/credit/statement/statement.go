// Package statement renders the consultancy credit statement as a PDF.
package statement

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type Block struct {
	Reference    string
	PurchaseDate string
	Credits      float64
	Active       bool
}

type Entry struct {
	WorkDate        string
	Consultant      string
	Description     string
	TicketNumber    string
	CreditsConsumed float64
}

type Data struct {
	Title           string
	GeneratedAt     time.Time
	TotalPurchased  float64
	ActivePurchased float64
	TotalConsumed   float64
	Remaining       float64
	Overdrawn       bool
	Blocks          []Block
	Entries         []Entry
}

type Renderer interface {
	Render(ctx context.Context, data Data) (io.Reader, error)
}

type PDFRenderer struct{}

func New() Renderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(ctx context.Context, data Data) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := data.Title
	if title == "" {
		title = "Consultancy credit statement"
	}
	m.AddRow(20,
		text.NewCol(8, title, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, "Generated "+data.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), props.Text{Size: 8, Align: align.Right}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Purchased: "+credits(data.TotalPurchased), props.Text{Top: 0}),
			text.New("Active blocks: "+credits(data.ActivePurchased), props.Text{Top: 5}),
			text.New("Consumed: "+credits(data.TotalConsumed), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Remaining: "+credits(data.Remaining), props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right}),
		),
	)
	if data.Overdrawn {
		m.AddRow(8, text.NewCol(12, "Consumption exceeds purchased credits.", props.Text{Style: fontstyle.Bold}))
	}

	m.AddRow(12, text.NewCol(12, "Credit blocks", props.Text{Size: 12, Style: fontstyle.Bold, Top: 4}))
	m.AddRow(8,
		text.NewCol(6, "Reference", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Purchased", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Active", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Credits", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, b := range data.Blocks {
		active := "no"
		if b.Active {
			active = "yes"
		}
		m.AddRow(7,
			text.NewCol(6, b.Reference, props.Text{Size: 9}),
			text.NewCol(2, b.PurchaseDate, props.Text{Size: 9}),
			text.NewCol(2, active, props.Text{Size: 9}),
			text.NewCol(2, credits(b.Credits), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(12, text.NewCol(12, "Consultancy log", props.Text{Size: 12, Style: fontstyle.Bold, Top: 4}))
	m.AddRow(8,
		text.NewCol(2, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Consultant", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Ticket", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Used", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, e := range data.Entries {
		m.AddRow(7,
			text.NewCol(2, e.WorkDate, props.Text{Size: 8}),
			text.NewCol(2, e.Consultant, props.Text{Size: 8}),
			text.NewCol(5, e.Description, props.Text{Size: 8}),
			text.NewCol(2, e.TicketNumber, props.Text{Size: 8}),
			text.NewCol(1, credits(e.CreditsConsumed), props.Text{Size: 8, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func credits(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
