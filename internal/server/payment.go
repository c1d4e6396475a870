package server

import (
	"fmt"
	"net/http"
	"strings"

	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	"github.com/arusnet/arus/internal/providers/pdf"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListPayments(c *gin.Context) {
	var query paymentdomain.ListPaymentRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	resp, err := s.paymentSvc.GetByID(c.Request.Context(), paymentdomain.GetPaymentRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderPaymentReceiptPDF(c *gin.Context) {
	payment, err := s.paymentSvc.GetByID(c.Request.Context(), paymentdomain.GetPaymentRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: payment.InvoiceID.String(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := s.buildInvoicePDFData(c.Request.Context(), inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	paidDate := payment.CreatedAt
	if payment.PaymentDate != nil {
		paidDate = *payment.PaymentDate
	}

	document, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), pdf.ReceiptData{
		InvoiceData:   data,
		PaidDate:      paidDate.Format(pdfDateLayout),
		PaymentMethod: string(payment.PaymentMethod),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("receipt-%s.pdf", payment.PaymentID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", document)
}
