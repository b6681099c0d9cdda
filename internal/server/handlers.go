package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"RoutineBuilder/internal/advisor"
	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/chat"
	"RoutineBuilder/internal/errs"
	"RoutineBuilder/internal/selection"
	"RoutineBuilder/internal/session"
)

type productsResponse struct {
	Products []catalog.Product `json:"products"`
	Count    int               `json:"count"`
}

type selectionResponse struct {
	Items []selection.Item `json:"items"`
	Count int              `json:"count"`
}

type toggleResponse struct {
	ID       int              `json:"id"`
	Selected bool             `json:"selected"`
	Items    []selection.Item `json:"items"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply     string            `json:"reply,omitempty"`
	Status    chat.Status       `json:"status"`
	SessionID string            `json:"session_id"`
	Messages  []session.Message `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) listProducts(c *gin.Context) {
	products := s.catalog.Filter(catalog.Criteria{
		Category: c.Query("category"),
		Search:   c.Query("q"),
	})
	c.JSON(http.StatusOK, productsResponse{Products: products, Count: len(products)})
}

func (s *Server) listCategories(c *gin.Context) {
	categories := s.catalog.Categories()
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *Server) getSelection(c *gin.Context) {
	items := s.selection.Items()
	c.JSON(http.StatusOK, selectionResponse{Items: items, Count: len(items)})
}

func (s *Server) toggleSelection(c *gin.Context) {
	id, ok := s.productID(c)
	if !ok {
		return
	}
	selected, err := s.selection.ToggleID(c.Request.Context(), s.catalog, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toggleResponse{ID: id, Selected: selected, Items: s.selection.Items()})
}

func (s *Server) removeSelection(c *gin.Context) {
	id, ok := s.productID(c)
	if !ok {
		return
	}
	if err := s.selection.Remove(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toggleResponse{ID: id, Selected: false, Items: s.selection.Items()})
}

func (s *Server) clearSelection(c *gin.Context) {
	if err := s.selection.Clear(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, selectionResponse{Items: []selection.Item{}, Count: 0})
}

func (s *Server) generateRoutine(c *gin.Context) {
	reply, err := s.advisor.GenerateRoutine(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.chatState(reply))
}

func (s *Server) getChat(c *gin.Context) {
	c.JSON(http.StatusOK, s.chatState(""))
}

func (s *Server) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "request body must be JSON with a message field"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "message must not be empty"})
		return
	}
	reply := s.advisor.Ask(c.Request.Context(), req.Message)
	c.JSON(http.StatusOK, s.chatState(reply))
}

func (s *Server) resetChat(c *gin.Context) {
	s.advisor.NewConversation(c.Request.Context())
	c.JSON(http.StatusOK, s.chatState(""))
}

func (s *Server) chatState(reply string) chatResponse {
	return chatResponse{
		Reply:     reply,
		Status:    s.advisor.Status(),
		SessionID: s.advisor.SessionID(),
		Messages:  s.advisor.Visible(),
	}
}

func (s *Server) productID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "product id must be a number"})
		return 0, false
	}
	return id, true
}

// fail maps an error onto a status code.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrEmptySelection):
		c.JSON(http.StatusBadRequest, errorResponse{Error: advisor.EmptySelectionReply})
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
