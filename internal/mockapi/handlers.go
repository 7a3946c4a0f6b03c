package mockapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yashgupta8707/jubilant-system/internal/domain/catalog"
	"github.com/yashgupta8707/jubilant-system/internal/domain/party"
	"github.com/yashgupta8707/jubilant-system/internal/validation"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Username != s.cfg.Username || req.Password != s.cfg.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	token, err := s.IssueToken(req.Username)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"username": req.Username},
	})
}

func (s *Server) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Categories())
}

func (s *Server) listBrands(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Brands())
}

func (s *Server) createCategory(c *gin.Context) {
	s.createRef(c, "Category", s.store.AddCategory)
}

func (s *Server) createBrand(c *gin.Context) {
	s.createRef(c, "Brand", s.store.AddBrand)
}

func (s *Server) createRef(c *gin.Context, kind string, add func(string) (catalog.Ref, error)) {
	var req catalog.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": kind + " name is required"})
		return
	}
	ref, err := add(req.Name)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Models())
}

func (s *Server) searchModels(c *gin.Context) {
	term := c.Query("term")
	if strings.TrimSpace(term) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Search term is required"})
		return
	}
	c.JSON(http.StatusOK, s.store.SearchModels(term))
}

func (s *Server) createModel(c *gin.Context) {
	var req catalog.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed: " + validation.Join(validation.Fields(err))})
		return
	}
	item, err := s.store.AddModel(req)
	if err != nil {
		s.storeError(c, err)
		return
	}
	s.logger.Info("model created", zap.String("id", item.ID), zap.String("name", item.Name))
	c.JSON(http.StatusCreated, item)
}

func (s *Server) listParties(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Parties(c.Query("search")))
}

func (s *Server) getParty(c *gin.Context) {
	rec, err := s.store.Party(c.Param("id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) createParty(c *gin.Context) {
	var req party.CreateRequest
	if !s.bind(c, &req) {
		return
	}
	req = req.Clean()
	if !s.check(c, req) {
		return
	}
	rec, err := s.store.AddParty(req, s.author(c))
	if err != nil {
		s.storeError(c, err)
		return
	}
	s.logger.Info("party created", zap.String("id", rec.ID))
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) updateParty(c *gin.Context) {
	var req party.UpdateRequest
	if !s.bind(c, &req) {
		return
	}
	if !s.check(c, req) {
		return
	}
	rec, err := s.store.UpdateParty(c.Param("id"), req, s.author(c))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteParty(c *gin.Context) {
	if err := s.store.DeleteParty(c.Param("id")); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Party deleted"})
}

func (s *Server) addComment(c *gin.Context) {
	var req party.CommentRequest
	if !s.bind(c, &req) {
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if !s.check(c, req) {
		return
	}
	rec, err := s.store.AddComment(c.Param("id"), req.Text, s.author(c))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listQuotations(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Quotations())
}

func (s *Server) listPartyQuotations(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.QuotationsByParty(c.Param("partyId")))
}

func (s *Server) getQuotation(c *gin.Context) {
	q, err := s.store.Quotation(c.Param("id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// bind decodes the JSON body into v, answering 400 on malformed input
func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return false
	}
	return true
}

// check validates v, answering 400 with the field errors on failure
func (s *Server) check(c *gin.Context, v any) bool {
	if err := validation.Struct(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": validation.Fields(err)})
		return false
	}
	return true
}

func (s *Server) author(c *gin.Context) string {
	if name := c.GetString(UsernameKey); name != "" {
		return name
	}
	return "anonymous"
}

func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundMessage(c.FullPath())})
	case errors.Is(err, ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"message": capitalize(strings.TrimPrefix(err.Error(), "mockapi: "))})
	case errors.Is(err, ErrUnknownReference):
		c.JSON(http.StatusBadRequest, gin.H{"message": capitalize(strings.TrimPrefix(err.Error(), "mockapi: "))})
	default:
		s.internalError(c, err)
	}
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}

func notFoundMessage(route string) string {
	switch {
	case strings.Contains(route, "/quotations"):
		return "Quotation not found"
	case strings.Contains(route, "/parties"):
		return "Party not found"
	}
	return "Not found"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
