package repositories

import (
	"context"
	"iter"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lookups that miss return *models.NotFoundError. Writes rejected by a unique
// index return an error wrapping models.ErrDuplicate. Conditional updates
// report whether their filter matched instead of failing.

// Transactor runs fn atomically. Repository calls made with the ctx passed to
// fn take part in the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LotteryRepository defines the interface for lottery data operations
type LotteryRepository interface {
	Create(ctx context.Context, lottery *models.Lottery) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Lottery, error)
	FindAll(ctx context.Context, status models.LotteryStatus) ([]*models.Lottery, error)
	FindResolved(ctx context.Context) ([]*models.Lottery, error)
	// MarkEnded moves an active lottery to ended
	MarkEnded(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	// UpdateTicketCount changes the ticket count of an active lottery
	UpdateTicketCount(ctx context.Context, id primitive.ObjectID, ticketCount int) (bool, error)
	// SetWinners stores the winning numbers of an ended lottery
	SetWinners(ctx context.Context, id primitive.ObjectID, winningNumbers []int, streamLink string, at time.Time) (bool, error)
	// ClaimForSale touches the lottery only while it is active and ticketNumber
	// is in range. Inside a transaction the write conflicts with a concurrent
	// MarkEnded or UpdateTicketCount.
	ClaimForSale(ctx context.Context, id primitive.ObjectID, ticketNumber int, at time.Time) (bool, error)
	// GuardUnresolved touches the lottery only while it has no winners, so a
	// concurrent SetWinners conflicts with the surrounding transaction
	GuardUnresolved(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

// TicketRepository defines the interface for ticket data operations.
// Uniqueness of (lotteryId, ticketNumber) is enforced by the store.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *models.Ticket) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	FindByNumbers(ctx context.Context, lotteryID primitive.ObjectID, numbers []int) ([]*models.Ticket, error)
	FindByLottery(ctx context.Context, lotteryID primitive.ObjectID) ([]*models.Ticket, error)
	// SoldNumbers yields sold ticket numbers in ascending order. Each range
	// over the returned sequence issues a fresh query.
	SoldNumbers(ctx context.Context, lotteryID primitive.ObjectID) iter.Seq2[int, error]
	CountByLottery(ctx context.Context, lotteryID primitive.ObjectID) (int64, error)
	MaxTicketNumber(ctx context.Context, lotteryID primitive.ObjectID) (int, error)
	FindSoldBetween(ctx context.Context, from, to time.Time) ([]*models.Ticket, error)
	// FindWinners returns winning tickets, optionally restricted to one lottery
	FindWinners(ctx context.Context, lotteryID *primitive.ObjectID) ([]*models.Ticket, error)
	FindPendingSaleSMS(ctx context.Context, lotteryID *primitive.ObjectID) ([]*models.Ticket, error)
	// FindPendingResultSMS returns tickets of the given lotteries whose result
	// announcement has not been acknowledged
	FindPendingResultSMS(ctx context.Context, lotteryIDs []primitive.ObjectID) ([]*models.Ticket, error)
	// ResetWinners turns every winner of the lottery back into a sold ticket
	ResetWinners(ctx context.Context, lotteryID primitive.ObjectID) (int64, error)
	// AssignWinner marks a sold ticket as the winner of rank
	AssignWinner(ctx context.Context, lotteryID primitive.ObjectID, ticketNumber, rank int) (bool, error)
	// MarkSMSSent sets smsSent if it is not already set
	MarkSMSSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	// MarkWinnerSMSSent sets winnerSmsSent if it is not already set
	MarkWinnerSMSSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	// UpsertByPhone returns the customer with phone, creating it if absent
	UpsertByPhone(ctx context.Context, name, phone string) (*models.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
}

// SellerRepository gives read access to staff and agent accounts
type SellerRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Seller, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Seller, error)
}
