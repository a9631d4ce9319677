package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketStatus represents the status of a sold ticket
type TicketStatus string

const (
	TicketStatusSold   TicketStatus = "sold"
	TicketStatusWinner TicketStatus = "winner"
	// TicketStatusLost is only ever derived for display, see Ticket.DisplayStatus.
	TicketStatusLost TicketStatus = "lost"
)

// CustomerSnapshot is the buyer as recorded at the time of sale
type CustomerSnapshot struct {
	Name  string `bson:"name" json:"name"`
	Phone string `bson:"phone" json:"phone"`
}

// Ticket is one numbered unit of a lottery, sold to exactly one customer.
// Tickets exist only for sold numbers.
type Ticket struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	LotteryID       primitive.ObjectID `bson:"lotteryId" json:"lotteryId"`
	TicketNumber    int                `bson:"ticketNumber" json:"ticketNumber"`
	CustomerID      primitive.ObjectID `bson:"customerId" json:"customerId"`
	Customer        CustomerSnapshot   `bson:"customer" json:"customer"`
	SoldBy          primitive.ObjectID `bson:"soldBy" json:"soldBy"`
	SoldAt          time.Time          `bson:"soldAt" json:"soldAt"`
	Status          TicketStatus       `bson:"status" json:"status"`
	WinnerRank      int                `bson:"winnerRank,omitempty" json:"winnerRank,omitempty"`
	SMSSent         bool               `bson:"smsSent" json:"smsSent"`
	SMSSentAt       time.Time          `bson:"smsSentAt,omitempty" json:"smsSentAt,omitempty"`
	WinnerSMSSent   bool               `bson:"winnerSmsSent" json:"winnerSmsSent"`
	WinnerSMSSentAt time.Time          `bson:"winnerSmsSentAt,omitempty" json:"winnerSmsSentAt,omitempty"`
}

// IsWinner reports whether the ticket holds a prize rank
func (t *Ticket) IsWinner() bool {
	return t.Status == TicketStatusWinner
}

// DisplayStatus returns "lost" for non-winning tickets of a resolved lottery
func (t *Ticket) DisplayStatus(lottery *Lottery) TicketStatus {
	if t.Status == TicketStatusSold && lottery != nil && lottery.IsResolved() {
		return TicketStatusLost
	}
	return t.Status
}
