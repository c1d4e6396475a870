package server

import (
	"net/http"

	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	systemlogdomain "github.com/arusnet/arus/internal/systemlog/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListActivityLogs(c *gin.Context) {
	var query auditdomain.ListActivityRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSystemLogs(c *gin.Context) {
	var query systemlogdomain.ListLogRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.systemLogSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
