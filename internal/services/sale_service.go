package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	"github.com/ticketdesk/lottery-backoffice/internal/metrics"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"github.com/ticketdesk/lottery-backoffice/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure SaleAllocator implements SaleService
var _ SaleService = (*SaleAllocator)(nil)

// SaleAllocator is the only writer of tickets. Double sales are prevented by
// the store's unique (lotteryId, ticketNumber) index, never by a prior read.
// Each sale claims the lottery in the same transaction as the insert, so an
// End or Resize cannot slip between the sellable check and the ticket.
type SaleAllocator struct {
	lotteryRepo  repositories.LotteryRepository
	ticketRepo   repositories.TicketRepository
	customerRepo repositories.CustomerRepository
	sellerRepo   repositories.SellerRepository
	tx           repositories.Transactor
	phones       *utils.PhoneValidator
}

// NewSaleAllocator creates a new SaleAllocator
func NewSaleAllocator(
	lotteryRepo repositories.LotteryRepository,
	ticketRepo repositories.TicketRepository,
	customerRepo repositories.CustomerRepository,
	sellerRepo repositories.SellerRepository,
	tx repositories.Transactor,
	phones *utils.PhoneValidator,
) *SaleAllocator {
	return &SaleAllocator{
		lotteryRepo:  lotteryRepo,
		ticketRepo:   ticketRepo,
		customerRepo: customerRepo,
		sellerRepo:   sellerRepo,
		tx:           tx,
		phones:       phones,
	}
}

// Sell reserves req.TicketNumber for the customer and returns the new ticket
func (s *SaleAllocator) Sell(ctx context.Context, req SaleRequest) (*models.Ticket, error) {
	log := logger.FromContext(ctx)

	var violations []models.Violation
	if req.TicketNumber < 1 {
		violations = append(violations, models.Violation{
			Rule:         models.RuleInvalidTicketNumber,
			TicketNumber: req.TicketNumber,
			Field:        "ticketNumber",
			Message:      fmt.Sprintf("ticket number %d must be a positive integer", req.TicketNumber),
		})
	}
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		violations = append(violations, models.Violation{
			Rule:    models.RuleInvalidCustomer,
			Field:   "customerName",
			Message: "customer name is required",
		})
	}
	phone, ok := s.phones.Normalize(req.CustomerPhone)
	if !ok {
		violations = append(violations, models.Violation{
			Rule:    models.RuleInvalidCustomer,
			Field:   "customerPhone",
			Message: fmt.Sprintf("phone %q is not a valid mobile number", req.CustomerPhone),
		})
	}
	if len(violations) > 0 {
		return nil, &models.ValidationError{Violations: violations}
	}

	seller, err := s.sellerRepo.FindByID(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}
	if !seller.Active {
		return nil, models.NewValidationError(models.RuleInactiveSeller, "seller %s is not active", seller.ID.Hex())
	}

	var ticket *models.Ticket
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.reserve(ctx, req, name, phone, seller)
		return err
	})
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) && conflict.Reason == models.ReasonTicketAlreadySold {
			metrics.SaleConflicts.Inc()
			log.Info("Ticket already sold", "lottery_id", req.LotteryID.Hex(), "ticket_number", req.TicketNumber)
		}
		return nil, err
	}

	metrics.TicketsSold.Inc()
	log.Info("Ticket sold",
		"lottery_id", ticket.LotteryID.Hex(), "ticket_number", ticket.TicketNumber,
		"ticket_id", ticket.ID.Hex(), "seller_id", seller.ID.Hex())
	return ticket, nil
}

// reserve runs inside the sale transaction and may be re-run by the driver
func (s *SaleAllocator) reserve(ctx context.Context, req SaleRequest, name, phone string, seller *models.Seller) (*models.Ticket, error) {
	lottery, err := s.lotteryRepo.FindByID(ctx, req.LotteryID)
	if err != nil {
		return nil, err
	}
	if err := checkSellable(lottery, req.TicketNumber); err != nil {
		return nil, err
	}

	claimed, err := s.lotteryRepo.ClaimForSale(ctx, lottery.ID, req.TicketNumber, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim lottery: %w", err)
	}
	if !claimed {
		// ended or shrunk since the read
		current, err := s.lotteryRepo.FindByID(ctx, lottery.ID)
		if err != nil {
			return nil, err
		}
		if err := checkSellable(current, req.TicketNumber); err != nil {
			return nil, err
		}
		return nil, &models.ConflictError{Reason: models.ReasonConcurrentUpdate, TicketNumber: req.TicketNumber, Retryable: true}
	}

	customer, err := s.customerRepo.UpsertByPhone(ctx, name, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert customer: %w", err)
	}

	ticket := &models.Ticket{
		LotteryID:    lottery.ID,
		TicketNumber: req.TicketNumber,
		CustomerID:   customer.ID,
		Customer:     models.CustomerSnapshot{Name: name, Phone: phone},
		SoldBy:       seller.ID,
		SoldAt:       time.Now(),
		Status:       models.TicketStatusSold,
	}
	if err := s.ticketRepo.Insert(ctx, ticket); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, &models.ConflictError{
				Reason:       models.ReasonTicketAlreadySold,
				TicketNumber: req.TicketNumber,
				Err:          err,
			}
		}
		return nil, fmt.Errorf("failed to insert ticket: %w", err)
	}
	return ticket, nil
}

func checkSellable(lottery *models.Lottery, ticketNumber int) error {
	if !lottery.IsActive() {
		return &models.StateError{
			Reason:  models.ReasonLotteryNotActive,
			Message: fmt.Sprintf("lottery %s has ended; tickets can no longer be sold", lottery.ID.Hex()),
		}
	}
	if !InRange(lottery, ticketNumber) {
		return &models.ValidationError{Violations: []models.Violation{{
			Rule:         models.RuleInvalidTicketNumber,
			TicketNumber: ticketNumber,
			Field:        "ticketNumber",
			Message:      fmt.Sprintf("ticket number %d is outside 1..%d", ticketNumber, lottery.TicketCount),
		}}}
	}
	return nil
}

// ListSold checks that the lottery exists and returns its sold numbers.
// Ranging over the sequence again re-reads the store.
func (s *SaleAllocator) ListSold(ctx context.Context, lotteryID primitive.ObjectID) (iter.Seq2[int, error], error) {
	if _, err := s.lotteryRepo.FindByID(ctx, lotteryID); err != nil {
		return nil, err
	}
	return s.ticketRepo.SoldNumbers(ctx, lotteryID), nil
}
