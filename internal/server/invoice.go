package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	"github.com/smallbiznis/clinicbill/internal/invoice/render"
	"github.com/smallbiznis/clinicbill/internal/payment/ledger"
	"github.com/smallbiznis/clinicbill/pkg/db/pagination"
)

type listInvoicesQuery struct {
	PageToken     string `form:"page_token"`
	PageSize      int    `form:"page_size"`
	PatientID     string `form:"patientId"`
	DocStatus     string `form:"docStatus"`
	PaymentStatus string `form:"paymentStatus"`
	Archived      string `form:"archived"`
}

type actorRequest struct {
	UserID string `json:"userId"`
}

type voidInvoiceRequest struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

type archiveInvoiceRequest struct {
	UserID   string `json:"userId"`
	Archived *bool  `json:"archived"`
	Reason   string `json:"reason"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ActorID = actorID(c, req.ActorID)

	inv, err := s.invoiceSvc.CreateDraft(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": inv})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query listInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		PatientID: strings.TrimSpace(query.PatientID),
	}
	if v := strings.TrimSpace(query.DocStatus); v != "" {
		status, ok := invoicedomain.ParseDocStatus(v)
		if !ok {
			AbortWithError(c, newValidationError("docStatus", "invalid_doc_status", "invalid docStatus"))
			return
		}
		req.DocStatus = status
	}
	if v := strings.TrimSpace(query.PaymentStatus); v != "" {
		status := ledger.Status(v)
		if !status.Valid() {
			AbortWithError(c, newValidationError("paymentStatus", "invalid_payment_status", "invalid paymentStatus"))
			return
		}
		req.PaymentStatus = status
	}
	if v := strings.TrimSpace(query.Archived); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			AbortWithError(c, newValidationError("archived", "invalid_archived", "invalid archived"))
			return
		}
		req.Archived = &archived
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	items, err := s.invoiceSvc.ListItems(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": inv, "items": items})
}

func (s *Server) AddInvoiceItem(c *gin.Context) {
	var req invoicedomain.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ActorID = actorID(c, req.ActorID)

	item, err := s.invoiceSvc.AddItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) PreviewInvoiceTotals(c *gin.Context) {
	result, err := s.invoiceSvc.Preview(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) FinalizeInvoice(c *gin.Context) {
	var req actorRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.invoiceSvc.Finalize(c.Request.Context(), strings.TrimSpace(c.Param("id")), actorID(c, req.UserID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"invoiceNo":     result.InvoiceNo,
		"totals":        result.Totals,
		"paymentStatus": result.PaymentStatus,
		"refinalized":   result.Refinalized,
	})
}

func (s *Server) VoidInvoice(c *gin.Context) {
	var req voidInvoiceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if _, err := s.invoiceSvc.Void(c.Request.Context(), strings.TrimSpace(c.Param("id")), actorID(c, req.UserID), req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) ArchiveInvoice(c *gin.Context) {
	var req archiveInvoiceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	archived := true
	if req.Archived != nil {
		archived = *req.Archived
	}

	if _, err := s.invoiceSvc.SetArchived(c.Request.Context(), strings.TrimSpace(c.Param("id")), actorID(c, req.UserID), archived, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) PrintInvoice(c *gin.Context) {
	var req actorRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if _, err := s.invoiceSvc.MarkPrinted(c.Request.Context(), strings.TrimSpace(c.Param("id")), actorID(c, req.UserID)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetInvoiceReceipt renders the printable HTML receipt. It does not stamp
// the print time; clients call PrintInvoice once the page is printed.
func (s *Server) GetInvoiceReceipt(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	inv, err := s.invoiceSvc.GetByID(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if inv.DocStatus == invoicedomain.DocStatusDraft {
		AbortWithError(c, invoicedomain.ErrInvoiceNotPrintable)
		return
	}

	items, err := s.invoiceSvc.ListItems(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payments, err := s.invoiceSvc.ListPayments(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	html, err := s.renderer.RenderReceipt(render.ReceiptInput{
		Invoice:  inv,
		Items:    items,
		Payments: payments,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
