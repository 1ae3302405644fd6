package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/domain"
)

func (s *Server) ListCreditBlocks(c *gin.Context) {
	resp, err := s.creditSvc.ListBlocks(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCreditBlock(c *gin.Context) {
	resp, err := s.creditSvc.GetBlock(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCreditBlock(c *gin.Context) {
	var req creditdomain.CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.CreateBlock(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateCreditBlock(c *gin.Context) {
	var req creditdomain.UpdateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.UpdateBlock(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCreditBlock(c *gin.Context) {
	if err := s.creditSvc.DeleteBlock(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}

func (s *Server) ListCreditEntries(c *gin.Context) {
	var query struct {
		From       string `form:"from"`
		To         string `form:"to"`
		Consultant string `form:"consultant"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.ListEntries(c.Request.Context(), creditdomain.ListEntryRequest{
		From:       optionalQuery(query.From),
		To:         optionalQuery(query.To),
		Consultant: strings.TrimSpace(query.Consultant),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCreditEntry(c *gin.Context) {
	resp, err := s.creditSvc.GetEntry(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCreditEntry(c *gin.Context) {
	var req creditdomain.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.CreateEntry(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateCreditEntry(c *gin.Context) {
	var req creditdomain.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.UpdateEntry(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCreditEntry(c *gin.Context) {
	if err := s.creditSvc.DeleteEntry(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}

// ImportCreditEntries answers 200 even when some records fail; failures are
// listed per index in the body.
func (s *Server) ImportCreditEntries(c *gin.Context) {
	var req creditdomain.ImportEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.ImportEntries(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreditSummary(c *gin.Context) {
	resp, err := s.creditSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreditStatement(c *gin.Context) {
	pdf, err := s.creditSvc.Statement(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	name := fmt.Sprintf("credit-statement-%s.pdf", s.clock.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
