package services

import (
	"fmt"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
)

// IsSellable reports whether ticketNumber can be sold: the lottery is active,
// the number is in range and no ticket exists for it yet
func IsSellable(lottery *models.Lottery, ticketNumber int, taken bool) bool {
	return lottery.IsActive() && InRange(lottery, ticketNumber) && !taken
}

// InRange reports whether ticketNumber lies in [1, ticketCount]
func InRange(lottery *models.Lottery, ticketNumber int) bool {
	return ticketNumber >= 1 && ticketNumber <= lottery.TicketCount
}

// CanResize checks a ticket count change against what has already been sold.
// Ended lotteries cannot be resized.
func CanResize(lottery *models.Lottery, newCount int, soldCount int64, highestSold int) (bool, error) {
	if !lottery.IsActive() {
		return false, &models.StateError{
			Reason:  models.ReasonLotteryNotActive,
			Message: fmt.Sprintf("lottery %s has ended and cannot be resized", lottery.ID.Hex()),
		}
	}
	return int64(newCount) >= soldCount && newCount >= highestSold && newCount >= len(lottery.Prizes), nil
}
