package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	feedbackdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
)

func (s *Server) ListFeedbackLinks(c *gin.Context) {
	resp, err := s.feedbackSvc.ListLinks(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFeedbackLink(c *gin.Context) {
	resp, err := s.feedbackSvc.GetLink(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateFeedbackLink(c *gin.Context) {
	var req feedbackdomain.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feedbackSvc.CreateLink(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateFeedbackLink(c *gin.Context) {
	var req feedbackdomain.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feedbackSvc.UpdateLink(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFeedbackLink(c *gin.Context) {
	if err := s.feedbackSvc.DeleteLink(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}

func (s *Server) GetPublicFeedback(c *gin.Context) {
	resp, err := s.feedbackSvc.PublicLink(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SubmitPublicFeedback(c *gin.Context) {
	var req feedbackdomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feedbackSvc.Submit(c.Request.Context(), strings.TrimSpace(c.Param("code")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
