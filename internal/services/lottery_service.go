package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure LotteryManager implements LotteryService
var _ LotteryService = (*LotteryManager)(nil)

// LotteryManager owns the ticket-number space and lifecycle of lotteries
type LotteryManager struct {
	lotteryRepo repositories.LotteryRepository
	ticketRepo  repositories.TicketRepository
	tx          repositories.Transactor
}

// NewLotteryManager creates a new LotteryManager
func NewLotteryManager(
	lotteryRepo repositories.LotteryRepository,
	ticketRepo repositories.TicketRepository,
	tx repositories.Transactor,
) *LotteryManager {
	return &LotteryManager{
		lotteryRepo: lotteryRepo,
		ticketRepo:  ticketRepo,
		tx:          tx,
	}
}

// Create validates and stores a new active lottery
func (s *LotteryManager) Create(ctx context.Context, req CreateLotteryRequest) (*models.Lottery, error) {
	var violations []models.Violation
	add := func(field, format string, args ...any) {
		violations = append(violations, models.Violation{
			Rule:    models.RuleInvalidLottery,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		add("name", "name is required")
	}
	if req.TicketCount < 1 {
		add("ticketCount", "ticket count must be at least 1")
	}
	if req.TicketPrice < 0 {
		add("ticketPrice", "ticket price must not be negative")
	}
	if req.CommissionPerTicket < 0 {
		add("commissionPerTicket", "commission per ticket must not be negative")
	}
	if len(req.Prizes) == 0 {
		add("prizes", "at least one prize is required")
	} else if err := models.CheckPrizeRanks(req.Prizes); err != nil {
		add("prizes", "%v", err)
	}
	if req.TicketCount >= 1 && len(req.Prizes) > req.TicketCount {
		add("prizes", "%d prizes exceed the %d available tickets", len(req.Prizes), req.TicketCount)
	}
	if len(violations) > 0 {
		return nil, &models.ValidationError{Violations: violations}
	}

	prizes := append([]models.Prize(nil), req.Prizes...)
	models.SortPrizes(prizes)
	lottery := &models.Lottery{
		Name:                name,
		TicketCount:         req.TicketCount,
		TicketPrice:         req.TicketPrice,
		CommissionPerTicket: req.CommissionPerTicket,
		Prizes:              prizes,
		Status:              models.LotteryStatusActive,
		DrawDate:            req.DrawDate,
		CreatedBy:           req.CreatedBy,
	}
	if err := s.lotteryRepo.Create(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to create lottery: %w", err)
	}

	logger.FromContext(ctx).Info("Lottery created",
		"lottery_id", lottery.ID.Hex(), "ticket_count", lottery.TicketCount, "prizes", len(lottery.Prizes))
	return lottery, nil
}

// Get returns a lottery by ID
func (s *LotteryManager) Get(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error) {
	return s.lotteryRepo.FindByID(ctx, id)
}

// List returns lotteries, optionally only those with status
func (s *LotteryManager) List(ctx context.Context, status models.LotteryStatus) ([]*models.Lottery, error) {
	if status != "" && status != models.LotteryStatusActive && status != models.LotteryStatusEnded {
		return nil, models.NewValidationError(models.RuleInvalidLottery, "unknown lottery status %q", status)
	}
	return s.lotteryRepo.FindAll(ctx, status)
}

// End closes sales on an active lottery
func (s *LotteryManager) End(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error) {
	ended, err := s.lotteryRepo.MarkEnded(ctx, id, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to end lottery: %w", err)
	}
	lottery, err := s.lotteryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ended {
		return nil, &models.StateError{
			Reason:  models.ReasonLotteryNotActive,
			Message: fmt.Sprintf("lottery %s has already ended", id.Hex()),
		}
	}

	logger.FromContext(ctx).Info("Lottery ended", "lottery_id", id.Hex())
	return lottery, nil
}

// Resize changes the ticket count. The new count must cover every sold
// ticket number and the prize list.
func (s *LotteryManager) Resize(ctx context.Context, id primitive.ObjectID, newCount int) (*models.Lottery, error) {
	if newCount < 1 {
		return nil, models.NewValidationError(models.RuleInvalidTicketCount, "ticket count must be at least 1")
	}

	var resized *models.Lottery
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		lottery, err := s.lotteryRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		sold, err := s.ticketRepo.CountByLottery(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count tickets: %w", err)
		}
		highest, err := s.ticketRepo.MaxTicketNumber(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to read highest ticket: %w", err)
		}

		ok, err := CanResize(lottery, newCount, sold, highest)
		if err != nil {
			return err
		}
		if !ok {
			return &models.ValidationError{Violations: []models.Violation{{
				Rule:  models.RuleInvalidTicketCount,
				Field: "ticketCount",
				Message: fmt.Sprintf("ticket count %d is below what is already committed (sold %d, highest number %d, prizes %d)",
					newCount, sold, highest, len(lottery.Prizes)),
			}}}
		}

		updated, err := s.lotteryRepo.UpdateTicketCount(ctx, id, newCount)
		if err != nil {
			return fmt.Errorf("failed to update ticket count: %w", err)
		}
		if !updated {
			return &models.StateError{
				Reason:  models.ReasonLotteryNotActive,
				Message: fmt.Sprintf("lottery %s has ended and cannot be resized", id.Hex()),
			}
		}
		lottery.TicketCount = newCount
		resized = lottery
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Lottery resized", "lottery_id", id.Hex(), "ticket_count", newCount)
	return resized, nil
}

// Tickets returns the lottery and its sold tickets
func (s *LotteryManager) Tickets(ctx context.Context, id primitive.ObjectID) (*models.Lottery, []*models.Ticket, error) {
	lottery, err := s.lotteryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tickets, err := s.ticketRepo.FindByLottery(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	return lottery, tickets, nil
}

// DeleteTicket removes a ticket of a lottery that has no committed winners.
// The check and the delete share a transaction so a concurrent Resolve
// either sees the ticket gone or blocks the delete.
func (s *LotteryManager) DeleteTicket(ctx context.Context, ticketID primitive.ObjectID) error {
	var ticket *models.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.ticketRepo.FindByID(ctx, ticketID)
		if err != nil {
			return err
		}
		lottery, err := s.lotteryRepo.FindByID(ctx, ticket.LotteryID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if lottery != nil {
			unresolved, err := s.lotteryRepo.GuardUnresolved(ctx, lottery.ID, time.Now())
			if err != nil {
				return fmt.Errorf("failed to guard lottery: %w", err)
			}
			if !unresolved {
				return &models.StateError{
					Reason:  models.ReasonLotteryResolved,
					Message: fmt.Sprintf("ticket %d belongs to a lottery with committed winners", ticket.TicketNumber),
				}
			}
		}
		return s.ticketRepo.Delete(ctx, ticketID)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Warn("Ticket deleted",
		"ticket_id", ticketID.Hex(), "lottery_id", ticket.LotteryID.Hex(), "ticket_number", ticket.TicketNumber)
	return nil
}
