package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type InvoiceData struct {
	ISPName    string
	ISPAddress string
	ISPEmail   string

	InvoiceNumber string
	IssuedDate    string
	DueDate       string
	Status        string

	CustomerName    string
	CustomerCode    string
	CustomerAddress string
	CustomerEmail   string

	Items []LineItem
	Total string

	PaymentNote string
}

// LineItem is one billed row. Subscriptions bill flat per month, so
// there is no quantity column.
type LineItem struct {
	Description string
	Amount      string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Halaman {current} dari {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(7, data.ISPName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(5, "INVOICE", props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(18,
		col.New(7).Add(
			text.New(data.ISPAddress, props.Text{Size: 9}),
			text.New(data.ISPEmail, props.Text{Size: 9, Top: 4}),
		),
		col.New(5).Add(
			text.New("Nomor: "+data.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Terbit: "+data.IssuedDate, props.Text{Size: 9, Top: 4, Align: align.Right}),
			text.New("Jatuh tempo: "+data.DueDate, props.Text{Size: 9, Top: 8, Align: align.Right}),
		),
	)

	m.AddRow(24,
		col.New(7).Add(
			text.New("Tagihan untuk", props.Text{Size: 9, Style: fontstyle.Bold}),
			text.New(data.CustomerName+" ("+data.CustomerCode+")", props.Text{Size: 9, Top: 5}),
			text.New(data.CustomerAddress, props.Text{Size: 9, Top: 9}),
			text.New(data.CustomerEmail, props.Text{Size: 9, Top: 13}),
		),
		col.New(5).Add(
			text.New("Status", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
			text.New(data.Status, props.Text{Size: 12, Style: fontstyle.Bold, Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(9, "Deskripsi", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Jumlah", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range data.Items {
		m.AddRow(8,
			text.NewCol(9, item.Description, props.Text{Size: 9}),
			text.NewCol(3, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(7),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(3, data.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if data.PaymentNote != "" {
		m.AddRow(16,
			text.NewCol(12, data.PaymentNote, props.Text{Size: 8, Top: 6}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
