package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ticketdesk/lottery-backoffice/internal/services"
)

// WinnerHandler handles winner entry and reporting HTTP requests
type WinnerHandler struct {
	winnerService services.WinnerService
}

// NewWinnerHandler creates a new WinnerHandler
func NewWinnerHandler(winnerService services.WinnerService) *WinnerHandler {
	return &WinnerHandler{
		winnerService: winnerService,
	}
}

// EnterWinners handles POST /lotteries/:id/winners
func (h *WinnerHandler) EnterWinners(c *gin.Context) {
	h.resolve(c, false)
}

// UpdateWinners handles PUT /lotteries/:id/winners
func (h *WinnerHandler) UpdateWinners(c *gin.Context) {
	h.resolve(c, true)
}

func (h *WinnerHandler) resolve(c *gin.Context, editMode bool) {
	lotteryID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var request struct {
		TikTokLink     string                `json:"tiktokLink" binding:"omitempty,url"`
		WinningTickets []services.Assignment `json:"winningTickets" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	lottery, err := h.winnerService.Resolve(ctx, services.ResolveRequest{
		LotteryID:   lotteryID,
		TikTokLink:  request.TikTokLink,
		Assignments: request.WinningTickets,
		EditMode:    editMode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	winners, err := h.winnerService.Winners(ctx, &lotteryID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{"lottery": viewOf(lottery), "winners": []any{}}
	if len(winners) > 0 {
		response["winners"] = winners[0].Winners
	}
	c.JSON(http.StatusOK, response)
}

// GetWinners handles GET /winners
func (h *WinnerHandler) GetWinners(c *gin.Context) {
	lotteryID, ok := optionalObjectIDQuery(c, "lottery_id")
	if !ok {
		return
	}
	winners, err := h.winnerService.Winners(c.Request.Context(), lotteryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lotteries": winners})
}
