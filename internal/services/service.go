package services

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LotteryService defines the lottery lifecycle operations
type LotteryService interface {
	Create(ctx context.Context, req CreateLotteryRequest) (*models.Lottery, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error)
	List(ctx context.Context, status models.LotteryStatus) ([]*models.Lottery, error)
	// End closes sales; winners can be entered afterwards
	End(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error)
	// Resize changes the ticket count of an active lottery
	Resize(ctx context.Context, id primitive.ObjectID, newCount int) (*models.Lottery, error)
	// Tickets returns the lottery with its sold tickets ordered by number
	Tickets(ctx context.Context, id primitive.ObjectID) (*models.Lottery, []*models.Ticket, error)
	// DeleteTicket removes a sold ticket, freeing its number
	DeleteTicket(ctx context.Context, ticketID primitive.ObjectID) error
}

// SaleService defines the ticket sale operations
type SaleService interface {
	// Sell atomically reserves a ticket number for a customer
	Sell(ctx context.Context, req SaleRequest) (*models.Ticket, error)
	// ListSold yields the sold numbers of a lottery in ascending order
	ListSold(ctx context.Context, lotteryID primitive.ObjectID) (iter.Seq2[int, error], error)
}

// CommissionService defines commission lookups and reporting
type CommissionService interface {
	ForSale(lottery *models.Lottery, seller *models.Seller) float64
	ForTicket(ctx context.Context, ticketID primitive.ObjectID) (*models.SaleCommission, error)
	Report(ctx context.Context, now time.Time) (*models.CommissionReport, error)
}

// WinnerService defines winner entry and reporting
type WinnerService interface {
	// Resolve validates and commits rank to ticket assignments in one transaction
	Resolve(ctx context.Context, req ResolveRequest) (*models.Lottery, error)
	Winners(ctx context.Context, lotteryID *primitive.ObjectID) ([]models.LotteryWinners, error)
}

// NotificationService tracks which SMS messages operators still have to send
type NotificationService interface {
	PendingSale(ctx context.Context, lotteryID *primitive.ObjectID) ([]models.PendingNotification, error)
	PendingWinner(ctx context.Context, lotteryID *primitive.ObjectID) (*models.PendingWinnerQueue, error)
	MarkSaleSent(ctx context.Context, ticketID primitive.ObjectID) error
	MarkWinnerSent(ctx context.Context, ticketID primitive.ObjectID) error
}

// Importer replays a CSV sales sheet
type Importer interface {
	Import(ctx context.Context, r io.Reader) (*ImportReport, error)
}

// CreateLotteryRequest holds the fields of a new lottery
type CreateLotteryRequest struct {
	Name                string
	TicketCount         int
	TicketPrice         float64
	CommissionPerTicket float64
	Prizes              []models.Prize
	DrawDate            time.Time
	CreatedBy           string
}

// SaleRequest identifies the ticket, buyer and seller of a sale
type SaleRequest struct {
	LotteryID     primitive.ObjectID
	TicketNumber  int
	CustomerName  string
	CustomerPhone string
	SellerID      primitive.ObjectID
}

// Assignment maps a prize rank to a ticket number
type Assignment struct {
	Rank         int `json:"rank" binding:"required,min=1"`
	TicketNumber int `json:"ticketNumber" binding:"required,min=1"`
}

// ResolveRequest is a full set of winners for a lottery
type ResolveRequest struct {
	LotteryID   primitive.ObjectID
	TikTokLink  string
	Assignments []Assignment
	// EditMode replaces previously committed winners
	EditMode bool
}
