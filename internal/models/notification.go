package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationKind identifies which acknowledgment flag a queue row refers to
type NotificationKind string

const (
	NotificationSale   NotificationKind = "sale"
	NotificationWinner NotificationKind = "winner"
	NotificationResult NotificationKind = "result" // non-winning ticket of a resolved lottery
)

// PendingNotification is a ticket awaiting an operator-sent SMS
type PendingNotification struct {
	Kind         NotificationKind   `json:"kind"`
	TicketID     primitive.ObjectID `json:"ticketId"`
	LotteryID    primitive.ObjectID `json:"lotteryId"`
	LotteryName  string             `json:"lotteryName"`
	TicketNumber int                `json:"ticketNumber"`
	Customer     CustomerSnapshot   `json:"customer"`
	WinnerRank   int                `json:"winnerRank,omitempty"`
	Message      string             `json:"message"`
}

// PendingWinnerQueue splits result announcements into winners and everyone else
type PendingWinnerQueue struct {
	Winners []PendingNotification `json:"winners"`
	Others  []PendingNotification `json:"others"`
}
