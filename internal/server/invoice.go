package server

import (
	"fmt"
	"net/http"
	"strings"

	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type issueInvoiceRequest struct {
	SubscriptionID  string  `json:"subscription_id"`
	DueDays         int     `json:"due_days"`
	Amount          int64   `json:"amount"`
	XenditInvoiceID *string `json:"xendit_invoice_id"`
}

func (s *Server) IssueInvoice(c *gin.Context) {
	var req issueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Issue(c.Request.Context(), invoicedomain.IssueInvoiceRequest{
		SubscriptionID:  strings.TrimSpace(req.SubscriptionID),
		DueDays:         req.DueDays,
		Amount:          req.Amount,
		XenditInvoiceID: trimStringPtr(req.XenditInvoiceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status         string `form:"status"`
		SubscriptionID string `form:"subscription_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken:      query.PageToken,
		PageSize:       int32(query.PageSize),
		Status:         strings.TrimSpace(query.Status),
		SubscriptionID: strings.TrimSpace(query.SubscriptionID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: strings.TrimSpace(c.Param("id")),
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

	document, err := s.pdfProvider.GenerateInvoice(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("invoice-%s.pdf", inv.InvoiceNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", document)
}
