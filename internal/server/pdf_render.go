package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	customerdomain "github.com/arusnet/arus/internal/customer/domain"
	internetpackagedomain "github.com/arusnet/arus/internal/internetpackage/domain"
	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/internal/providers/pdf"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	sysconfigdomain "github.com/arusnet/arus/internal/sysconfig/domain"
)

const pdfDateLayout = "02-01-2006"

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

func indonesianMonthYear(t time.Time) string {
	return fmt.Sprintf("%s %d", indonesianMonths[t.Month()-1], t.Year())
}

// settingOrDefault reads one branding setting. A missing or unreadable
// row falls back to the default instead of failing the render.
func (s *Server) settingOrDefault(ctx context.Context, key, def string) string {
	setting, err := s.sysconfigSvc.Get(ctx, sysconfigdomain.GetSettingRequest{Key: key})
	if err != nil || strings.TrimSpace(setting.Value) == "" {
		return def
	}
	return setting.Value
}

// buildInvoicePDFData walks invoice → subscription → customer/package
// and assembles the display strings the renderer wants.
func (s *Server) buildInvoicePDFData(ctx context.Context, inv invoicedomain.Invoice) (pdf.InvoiceData, error) {
	sub, err := s.subscriptionSvc.GetByID(ctx, subscriptiondomain.GetSubscriptionRequest{
		ID: inv.SubscriptionID.String(),
	})
	if err != nil {
		return pdf.InvoiceData{}, err
	}

	cust, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{
		ID: sub.CustomerID.String(),
	})
	if err != nil {
		return pdf.InvoiceData{}, err
	}

	pkg, err := s.packageSvc.GetByID(ctx, internetpackagedomain.GetPackageRequest{
		ID: sub.PackageID.String(),
	})
	if err != nil {
		return pdf.InvoiceData{}, err
	}

	return pdf.InvoiceData{
		ISPName:    s.settingOrDefault(ctx, "company_name", "ArusNet"),
		ISPAddress: s.settingOrDefault(ctx, "company_address", ""),
		ISPEmail:   s.settingOrDefault(ctx, "company_email", ""),

		InvoiceNumber: inv.InvoiceNumber,
		IssuedDate:    inv.IssuedDate.Format(pdfDateLayout),
		DueDate:       inv.DueDate.Format(pdfDateLayout),
		Status:        strings.ToUpper(string(inv.Status)),

		CustomerName:    cust.Name,
		CustomerCode:    cust.CustomerCode,
		CustomerAddress: cust.Address,
		CustomerEmail:   cust.Email,

		Items: []pdf.LineItem{
			{
				Description: fmt.Sprintf("Langganan %s, %s", pkg.Name, indonesianMonthYear(inv.IssuedDate)),
				Amount:      pdf.FormatRupiah(inv.Amount),
			},
		},
		Total: pdf.FormatRupiah(inv.Amount),

		PaymentNote: s.settingOrDefault(ctx, "invoice_payment_note",
			"Pembayaran melalui tautan Xendit pada email tagihan."),
	}, nil
}
