package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
)

func (s *Server) RecordInvoicePayment(c *gin.Context) {
	var req invoicedomain.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ActorID = actorID(c, req.ActorID)

	result, err := s.invoiceSvc.RecordPayment(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"paymentId":      result.Payment.ID.String(),
		"paymentStatus":  result.Summary.Status,
		"refundedAmount": result.Summary.RefundedSum,
	})
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	payments, err := s.invoiceSvc.ListPayments(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (s *Server) RecomputeInvoicePaymentStatus(c *gin.Context) {
	var req actorRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.invoiceSvc.RecomputePaymentStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), actorID(c, req.UserID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"paymentStatus": result.Summary.Status,
		"summary":       result.Summary,
	})
}
