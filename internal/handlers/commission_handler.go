package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ticketdesk/lottery-backoffice/internal/services"
)

// CommissionHandler handles commission HTTP requests
type CommissionHandler struct {
	commissionService services.CommissionService
}

// NewCommissionHandler creates a new CommissionHandler
func NewCommissionHandler(commissionService services.CommissionService) *CommissionHandler {
	return &CommissionHandler{
		commissionService: commissionService,
	}
}

// GetReport handles GET /commissions/report. An optional ?at=RFC3339 moves the report's "now".
func (h *CommissionHandler) GetReport(c *gin.Context) {
	now := time.Now()
	if at := c.Query("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": KindValidation, "message": "at must be an RFC3339 timestamp"})
			return
		}
		now = parsed
	}
	report, err := h.commissionService.Report(c.Request.Context(), now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetTicketCommission handles GET /tickets/:id/commission
func (h *CommissionHandler) GetTicketCommission(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	commission, err := h.commissionService.ForTicket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}
