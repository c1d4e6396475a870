package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

// HandlePaymentWebhook takes a raw gateway delivery. The webhook
// service owns logging, verification and reconciliation; a replayed
// event answers 200 so the gateway stops retrying.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			s.recordWebhookMetric(c, provider, payload, "duplicate")
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		s.recordWebhookMetric(c, provider, payload, "rejected")
		AbortWithError(c, err)
		return
	}

	s.recordWebhookMetric(c, provider, payload, "ok")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) recordWebhookMetric(c *gin.Context, provider string, payload []byte, outcome string) {
	if s.obsMetrics == nil {
		return
	}

	var peek struct {
		Status string `json:"status"`
	}
	eventType := ""
	if err := json.Unmarshal(payload, &peek); err == nil {
		eventType = strings.ToLower(strings.TrimSpace(peek.Status))
	}

	s.obsMetrics.RecordWebhookEvent(c.Request.Context(), provider, eventType, outcome)
}
