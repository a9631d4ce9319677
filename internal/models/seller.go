package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SellerKind distinguishes the two commission models
type SellerKind string

const (
	SellerKindStaff SellerKind = "staff" // flat commission per ticket, set on the lottery
	SellerKindAgent SellerKind = "agent" // percentage of ticket price, set on the seller
)

// Seller is a staff member or agent allowed to sell tickets.
// Seller records are managed elsewhere; this service only reads them.
type Seller struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name           string             `bson:"name" json:"name"`
	Kind           SellerKind         `bson:"kind" json:"kind"`
	CommissionRate float64            `bson:"commissionRate,omitempty" json:"commissionRate,omitempty"` // percent, agents only
	Active         bool               `bson:"active" json:"active"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
