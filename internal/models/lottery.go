package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LotteryStatus represents the sale status of a lottery
type LotteryStatus string

const (
	LotteryStatusActive LotteryStatus = "active"
	LotteryStatusEnded  LotteryStatus = "ended"
)

// ResolutionState describes where a lottery stands with respect to its winners
type ResolutionState string

const (
	ResolutionSelling            ResolutionState = "selling"
	ResolutionAwaitingResolution ResolutionState = "awaiting-resolution"
	ResolutionResolved           ResolutionState = "resolved"
)

// Lottery represents a bounded pool of numbered tickets with a price and prize list
type Lottery struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name                string             `bson:"name" json:"name"`
	TicketCount         int                `bson:"ticketCount" json:"ticketCount"`
	TicketPrice         float64            `bson:"ticketPrice" json:"ticketPrice"`
	CommissionPerTicket float64            `bson:"commissionPerTicket" json:"commissionPerTicket"` // flat staff commission
	Prizes              []Prize            `bson:"prizes" json:"prizes"`
	Status              LotteryStatus      `bson:"status" json:"status"`
	WinningTicketNumber []int              `bson:"winningTicketNumber,omitempty" json:"winningTicketNumber,omitempty"` // index = rank-1
	TikTokStreamLink    string             `bson:"tiktokStreamLink,omitempty" json:"tiktokStreamLink,omitempty"`
	DrawDate            time.Time          `bson:"drawDate,omitempty" json:"drawDate,omitempty"`
	CreatedBy           string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	EndedAt             time.Time          `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
	ResolvedAt          time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsActive reports whether tickets can still be sold
func (l *Lottery) IsActive() bool {
	return l.Status == LotteryStatusActive
}

// IsResolved reports whether winners have been committed
func (l *Lottery) IsResolved() bool {
	return l.Status == LotteryStatusEnded && len(l.WinningTicketNumber) > 0
}

// Resolution derives the winner state machine position from the stored fields
func (l *Lottery) Resolution() ResolutionState {
	switch {
	case l.IsActive():
		return ResolutionSelling
	case l.IsResolved():
		return ResolutionResolved
	default:
		return ResolutionAwaitingResolution
	}
}

// PrizeByRank returns the prize with the given rank, if any
func (l *Lottery) PrizeByRank(rank int) (Prize, bool) {
	for _, p := range l.Prizes {
		if p.Rank == rank {
			return p, true
		}
	}
	return Prize{}, false
}
