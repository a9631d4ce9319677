package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ticketdesk/lottery-backoffice/internal/services"
)

// NotificationHandler exposes the SMS queues and operator acknowledgments
type NotificationHandler struct {
	notificationService services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetPendingSMS handles GET /notifications/pending-sms
func (h *NotificationHandler) GetPendingSMS(c *gin.Context) {
	lotteryID, ok := optionalObjectIDQuery(c, "lottery_id")
	if !ok {
		return
	}
	pending, err := h.notificationService.PendingSale(c.Request.Context(), lotteryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": pending, "count": len(pending)})
}

// GetPendingWinnerSMS handles GET /notifications/pending-winner-sms
func (h *NotificationHandler) GetPendingWinnerSMS(c *gin.Context) {
	lotteryID, ok := optionalObjectIDQuery(c, "lottery_id")
	if !ok {
		return
	}
	queue, err := h.notificationService.PendingWinner(c.Request.Context(), lotteryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, queue)
}

// MarkSMSSent handles PUT /tickets/:id/sms-sent
func (h *NotificationHandler) MarkSMSSent(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.notificationService.MarkSaleSent(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticketId": id.Hex(), "smsSent": true})
}

// MarkWinnerSMSSent handles PUT /tickets/:id/winner-sms-sent
func (h *NotificationHandler) MarkWinnerSMSSent(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.notificationService.MarkWinnerSent(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticketId": id.Hex(), "winnerSmsSent": true})
}
