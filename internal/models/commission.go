package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Period is a half-open time window [Start, End)
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Previous returns the immediately preceding period of equal length
func (p Period) Previous() Period {
	d := p.End.Sub(p.Start)
	return Period{Start: p.Start.Add(-d), End: p.Start}
}

// SaleCommission is the commission earned on a single ticket
type SaleCommission struct {
	TicketID   primitive.ObjectID `json:"ticketId"`
	SellerID   primitive.ObjectID `json:"sellerId"`
	SellerKind SellerKind         `json:"sellerKind"`
	Amount     float64            `json:"amount"`
}

// BucketStats aggregates one seller's sales within a period
type BucketStats struct {
	Period          Period  `json:"period"`
	TicketsSold     int     `json:"ticketsSold"`
	Revenue         float64 `json:"revenue"`
	Commission      float64 `json:"commission"`
	TicketsTrend    float64 `json:"ticketsTrend"`
	CommissionTrend float64 `json:"commissionTrend"`
}

// SellerCommission is one row of the commission report
type SellerCommission struct {
	SellerID   primitive.ObjectID `json:"sellerId"`
	SellerName string             `json:"sellerName"`
	SellerKind SellerKind         `json:"sellerKind"`
	Today      BucketStats        `json:"today"`
	ThisWeek   BucketStats        `json:"thisWeek"`
}

// CommissionReport is the aggregate commission view
type CommissionReport struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Sellers     []SellerCommission `json:"sellers"`
	Today       BucketStats        `json:"today"`
	ThisWeek    BucketStats        `json:"thisWeek"`
	Excluded    int                `json:"excludedTickets"`
}
