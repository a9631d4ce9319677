package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ticketdesk/lottery-backoffice/internal/config"
	"github.com/ticketdesk/lottery-backoffice/internal/middleware"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/services"
	"github.com/ticketdesk/lottery-backoffice/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SaleHandler handles ticket sale HTTP requests
type SaleHandler struct {
	saleService services.SaleService
	polling     config.PollingConfig
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService services.SaleService, polling config.PollingConfig) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
		polling:     polling,
	}
}

// SellTicket handles POST /lotteries/:id/tickets
func (h *SaleHandler) SellTicket(c *gin.Context) {
	lotteryID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var request struct {
		TicketNumber  int    `json:"ticketNumber" binding:"required,min=1"`
		CustomerName  string `json:"customerName" binding:"required"`
		CustomerPhone string `json:"customerPhone" binding:"required,mobile"`
		SellerID      string `json:"sellerId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBindError(c, err)
		return
	}

	// the caller sells on their own behalf unless a seller is named
	sellerHex := request.SellerID
	if sellerHex == "" {
		sellerHex = c.GetString(middleware.CallerIDKey)
	}
	sellerID, err := primitive.ObjectIDFromHex(sellerHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": KindValidation, "message": ErrMsgInvalidID, "details": gin.H{"sellerId": sellerHex}})
		return
	}

	ticket, err := h.saleService.Sell(c.Request.Context(), services.SaleRequest{
		LotteryID:     lotteryID,
		TicketNumber:  request.TicketNumber,
		CustomerName:  request.CustomerName,
		CustomerPhone: request.CustomerPhone,
		SellerID:      sellerID,
	})
	if err != nil {
		var serr *models.StateError
		if errors.As(err, &serr) && serr.Reason == models.ReasonLotteryNotActive {
			c.JSON(http.StatusGone, gin.H{"error": KindState, "message": serr.Message, "details": gin.H{"reason": serr.Reason}})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// GetSoldNumbers handles GET /lotteries/:id/sold-numbers
func (h *SaleHandler) GetSoldNumbers(c *gin.Context) {
	lotteryID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	seq, err := h.saleService.ListSold(c.Request.Context(), lotteryID)
	if err != nil {
		respondError(c, err)
		return
	}
	numbers := []int{}
	for n, err := range seq {
		if err != nil {
			respondError(c, err)
			return
		}
		numbers = append(numbers, n)
	}
	c.JSON(http.StatusOK, gin.H{
		"lotteryId":    lotteryID.Hex(),
		"soldNumbers":  numbers,
		"count":        len(numbers),
		"next_poll_ms": utils.PollInterval(h.polling.BaseIntervalMs, h.polling.JitterMs),
	})
}
