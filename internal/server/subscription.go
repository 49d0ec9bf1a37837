package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/cardmint/cardmint/internal/subscription/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateSubscriptionOrder(c *gin.Context) {
	var req subscriptiondomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.CreateOrder(c.Request.Context(), subscriptiondomain.CreateOrderRequest{
		TenantID: strings.TrimSpace(req.TenantID),
		PlanCode: strings.TrimSpace(req.PlanCode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VerifySubscriptionPayment(c *gin.Context) {
	var req subscriptiondomain.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.VerifyPayment(c.Request.Context(), subscriptiondomain.VerifyPaymentRequest{
		SubscriptionID: strings.TrimSpace(req.SubscriptionID),
		TenantID:       strings.TrimSpace(req.TenantID),
		OrderID:        strings.TrimSpace(req.OrderID),
		PaymentID:      strings.TrimSpace(req.PaymentID),
		Signature:      strings.TrimSpace(req.Signature),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	items, err := s.subscriptionSvc.List(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetCurrentSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	item, err := s.subscriptionSvc.GetCurrent(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// No open subscription is a normal answer, not an error.
	c.JSON(http.StatusOK, gin.H{"data": item})
}
