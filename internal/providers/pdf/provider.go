package pdf

import (
	"context"
	"fmt"
	"strings"
)

// Provider renders billing documents. Callers assemble the display
// strings; the renderer never reaches into domain models.
type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
	GenerateReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

// FormatRupiah renders an amount the way it appears on the printed
// page: Rp with dot-grouped thousands and no decimals.
func FormatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := fmt.Sprintf("%d", amount)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	return fmt.Sprintf("%sRp %s", sign, strings.Join(groups, "."))
}
