package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	itcheckdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/domain"
)

func (s *Server) ListITChecks(c *gin.Context) {
	var query struct {
		Status     string `form:"status"`
		Department string `form:"department"`
		Search     string `form:"search"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itCheckSvc.List(c.Request.Context(), itcheckdomain.ListEntryRequest{
		Status:     strings.TrimSpace(query.Status),
		Department: strings.TrimSpace(query.Department),
		Search:     strings.TrimSpace(query.Search),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetITCheck(c *gin.Context) {
	resp, err := s.itCheckSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateITCheck(c *gin.Context) {
	var req itcheckdomain.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itCheckSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateITCheck(c *gin.Context) {
	var req itcheckdomain.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itCheckSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteITCheck(c *gin.Context) {
	if err := s.itCheckSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}
