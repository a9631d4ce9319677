package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ticketdesk/lottery-backoffice/internal/middleware"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/services"
)

// LotteryHandler handles lottery lifecycle HTTP requests
type LotteryHandler struct {
	lotteryService services.LotteryService
}

// NewLotteryHandler creates a new LotteryHandler
func NewLotteryHandler(lotteryService services.LotteryService) *LotteryHandler {
	return &LotteryHandler{
		lotteryService: lotteryService,
	}
}

// lotteryView adds the derived resolution state to a lottery
type lotteryView struct {
	*models.Lottery
	Resolution models.ResolutionState `json:"resolution"`
}

func viewOf(l *models.Lottery) lotteryView {
	return lotteryView{Lottery: l, Resolution: l.Resolution()}
}

// ticketView shows "lost" for non-winning tickets of a resolved lottery
type ticketView struct {
	*models.Ticket
	Status models.TicketStatus `json:"status"`
}

// CreateLottery handles POST /lotteries
func (h *LotteryHandler) CreateLottery(c *gin.Context) {
	var request struct {
		Name                string         `json:"name" binding:"required"`
		TicketCount         int            `json:"ticketCount" binding:"required,min=1"`
		TicketPrice         float64        `json:"ticketPrice" binding:"min=0"`
		CommissionPerTicket float64        `json:"commissionPerTicket" binding:"min=0"`
		Prizes              []models.Prize `json:"prizes" binding:"required,min=1,dive"`
		DrawDate            *time.Time     `json:"drawDate"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBindError(c, err)
		return
	}

	req := services.CreateLotteryRequest{
		Name:                request.Name,
		TicketCount:         request.TicketCount,
		TicketPrice:         request.TicketPrice,
		CommissionPerTicket: request.CommissionPerTicket,
		Prizes:              request.Prizes,
		CreatedBy:           c.GetString(middleware.CallerIDKey),
	}
	if request.DrawDate != nil {
		req.DrawDate = *request.DrawDate
	}

	lottery, err := h.lotteryService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(lottery))
}

// ListLotteries handles GET /lotteries
func (h *LotteryHandler) ListLotteries(c *gin.Context) {
	lotteries, err := h.lotteryService.List(c.Request.Context(), models.LotteryStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]lotteryView, 0, len(lotteries))
	for _, l := range lotteries {
		views = append(views, viewOf(l))
	}
	c.JSON(http.StatusOK, gin.H{"lotteries": views, "count": len(views)})
}

// GetLottery handles GET /lotteries/:id
func (h *LotteryHandler) GetLottery(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	lottery, err := h.lotteryService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(lottery))
}

// GetLotteryTickets handles GET /lotteries/:id/tickets
func (h *LotteryHandler) GetLotteryTickets(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	lottery, tickets, err := h.lotteryService.Tickets(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, ticketView{Ticket: t, Status: t.DisplayStatus(lottery)})
	}
	c.JSON(http.StatusOK, gin.H{"lottery": viewOf(lottery), "tickets": views})
}

// EndLottery handles POST /lotteries/:id/end
func (h *LotteryHandler) EndLottery(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	lottery, err := h.lotteryService.End(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(lottery))
}

// ResizeLottery handles PUT /lotteries/:id/ticket-count
func (h *LotteryHandler) ResizeLottery(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var request struct {
		TicketCount int `json:"ticketCount" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBindError(c, err)
		return
	}
	lottery, err := h.lotteryService.Resize(c.Request.Context(), id, request.TicketCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(lottery))
}

// DeleteTicket handles DELETE /tickets/:id
func (h *LotteryHandler) DeleteTicket(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.lotteryService.DeleteTicket(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket deleted", "ticketId": id.Hex()})
}
