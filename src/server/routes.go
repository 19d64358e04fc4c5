package server

import (
	"net/http"

	"trade-orders/src/models"
	"trade-orders/src/service"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *HTTPServer) getRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to Trade Orders API"})
}

// -----------------------------------------------------------------------------

func (s *HTTPServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.hub.Count(),
	})
}

// -----------------------------------------------------------------------------

func (s *HTTPServer) createOrder(c *gin.Context) {
	var input models.MOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		renderBindError(c, err)
		return
	}

	order, err := s.service.CreateOrder(c.Request.Context(), input)
	if err != nil {
		s.renderError(c, err, "body")
		return
	}
	c.JSON(http.StatusOK, order)
}

// -----------------------------------------------------------------------------

func (s *HTTPServer) listOrders(c *gin.Context) {
	skip, ok := queryInt(c, "skip", service.DefaultListSkip)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", service.DefaultListLimit)
	if !ok {
		return
	}

	orders, err := s.service.ListOrders(c.Request.Context(), skip, limit)
	if err != nil {
		s.renderError(c, err, "query")
		return
	}
	c.JSON(http.StatusOK, orders)
}

// -----------------------------------------------------------------------------

func (s *HTTPServer) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := s.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err, "path")
		return
	}
	c.JSON(http.StatusOK, order)
}

// -----------------------------------------------------------------------------

func (s *HTTPServer) updateOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var input models.MOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		renderBindError(c, err)
		return
	}

	order, err := s.service.UpdateOrder(c.Request.Context(), id, input)
	if err != nil {
		s.renderError(c, err, "body")
		return
	}
	// The service reports a missing order as an absent result
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": orderNotFound})
		return
	}
	c.JSON(http.StatusOK, order)
}
