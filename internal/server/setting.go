package server

import (
	"net/http"
	"strings"

	sysconfigdomain "github.com/arusnet/arus/internal/sysconfig/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListSettings(c *gin.Context) {
	resp, err := s.sysconfigSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSetting(c *gin.Context) {
	resp, err := s.sysconfigSvc.Get(c.Request.Context(), sysconfigdomain.GetSettingRequest{
		Key: strings.TrimSpace(c.Param("key")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type putSettingRequest struct {
	Value       string  `json:"value"`
	Description *string `json:"description"`
	Encrypted   *bool   `json:"encrypted"`
}

func (s *Server) PutSetting(c *gin.Context) {
	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sysconfigSvc.Put(c.Request.Context(), sysconfigdomain.PutSettingRequest{
		Key:         strings.TrimSpace(c.Param("key")),
		Value:       req.Value,
		Description: trimStringPtr(req.Description),
		Encrypted:   req.Encrypted,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
