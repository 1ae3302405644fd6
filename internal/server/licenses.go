package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	licensedomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/license/domain"
)

func (s *Server) ListLicenses(c *gin.Context) {
	var query struct {
		Search             string `form:"search"`
		Active             string `form:"active"`
		ExpiringWithinDays string `form:"expiringWithinDays"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}
	within, err := parseOptionalInt(query.ExpiringWithinDays)
	if err != nil {
		AbortWithError(c, licensedomain.ErrInvalidFilter)
		return
	}

	resp, err := s.licenseSvc.List(c.Request.Context(), licensedomain.ListLicenseRequest{
		Search:             strings.TrimSpace(query.Search),
		Active:             active,
		ExpiringWithinDays: within,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLicense(c *gin.Context) {
	resp, err := s.licenseSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateLicense(c *gin.Context) {
	var req licensedomain.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.licenseSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateLicense(c *gin.Context) {
	var req licensedomain.UpdateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.licenseSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteLicense(c *gin.Context) {
	if err := s.licenseSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}
