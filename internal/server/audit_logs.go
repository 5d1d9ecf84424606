package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	"github.com/smallbiznis/clinicbill/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Action    string `form:"action"`
}

func (s *Server) ListInvoiceAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.invoiceSvc.GetByID(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Action:     strings.TrimSpace(query.Action),
		TargetType: "invoice",
		TargetID:   id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}
