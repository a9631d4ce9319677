package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Winner is a reporting row derived from a ticket with status winner.
// It is never stored.
type Winner struct {
	TicketID      primitive.ObjectID `json:"ticketId"`
	LotteryID     primitive.ObjectID `json:"lotteryId"`
	Rank          int                `json:"rank"`
	PrizeTitle    string             `json:"prizeTitle"`
	TicketNumber  int                `json:"ticketNumber"`
	Customer      CustomerSnapshot   `json:"customer"`
	SoldBy        primitive.ObjectID `json:"soldBy"`
	WinnerSMSSent bool               `json:"winnerSmsSent"`
}

// LotteryWinners groups winners of one lottery, ordered by rank
type LotteryWinners struct {
	LotteryID        primitive.ObjectID `json:"lotteryId"`
	LotteryName      string             `json:"lotteryName"`
	TikTokStreamLink string             `json:"tiktokStreamLink,omitempty"`
	Winners          []Winner           `json:"winners"`
}

// WinnerFromTicket builds the projection row for a winning ticket
func WinnerFromTicket(t *Ticket, lottery *Lottery) Winner {
	w := Winner{
		TicketID:      t.ID,
		LotteryID:     t.LotteryID,
		Rank:          t.WinnerRank,
		TicketNumber:  t.TicketNumber,
		Customer:      t.Customer,
		SoldBy:        t.SoldBy,
		WinnerSMSSent: t.WinnerSMSSent,
	}
	if lottery != nil {
		if p, ok := lottery.PrizeByRank(t.WinnerRank); ok {
			w.PrizeTitle = p.Title
		}
	}
	return w
}
