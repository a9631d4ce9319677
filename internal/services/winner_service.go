package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	"github.com/ticketdesk/lottery-backoffice/internal/metrics"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure WinnerResolver implements WinnerService
var _ WinnerService = (*WinnerResolver)(nil)

// WinnerResolver is the only component that turns sold tickets into winners
type WinnerResolver struct {
	lotteryRepo repositories.LotteryRepository
	ticketRepo  repositories.TicketRepository
	tx          repositories.Transactor
}

// NewWinnerResolver creates a new WinnerResolver
func NewWinnerResolver(
	lotteryRepo repositories.LotteryRepository,
	ticketRepo repositories.TicketRepository,
	tx repositories.Transactor,
) *WinnerResolver {
	return &WinnerResolver{
		lotteryRepo: lotteryRepo,
		ticketRepo:  ticketRepo,
		tx:          tx,
	}
}

// Resolve validates the full assignment list and commits it in one
// transaction. Nothing is written unless every check passes.
func (s *WinnerResolver) Resolve(ctx context.Context, req ResolveRequest) (*models.Lottery, error) {
	log := logger.FromContext(ctx)
	mode := "enter"
	if req.EditMode {
		mode = "edit"
	}

	lottery, winning, err := s.validate(ctx, req)
	if err != nil {
		metrics.Resolutions.WithLabelValues(mode, outcome(err)).Inc()
		return nil, err
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.commit(ctx, lottery, req, winning)
	})
	if err != nil {
		metrics.Resolutions.WithLabelValues(mode, outcome(err)).Inc()
		log.Error("Winner resolution aborted", "lottery_id", lottery.ID.Hex(), "mode", mode, "error", err)
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to commit winners: %w", err)
	}

	metrics.Resolutions.WithLabelValues(mode, "committed").Inc()
	log.Info("Winners committed", "lottery_id", lottery.ID.Hex(), "mode", mode, "winning_numbers", winning)
	return s.lotteryRepo.FindByID(ctx, lottery.ID)
}

// validate runs every check against committed state and returns the lottery
// together with the winning numbers indexed by rank-1
func (s *WinnerResolver) validate(ctx context.Context, req ResolveRequest) (*models.Lottery, []int, error) {
	lottery, err := s.lotteryRepo.FindByID(ctx, req.LotteryID)
	if err != nil {
		return nil, nil, err
	}
	if lottery.Status != models.LotteryStatusEnded {
		return nil, nil, &models.StateError{
			Reason:  models.ReasonLotteryNotEnded,
			Message: fmt.Sprintf("lottery %s must be ended before winners are entered", lottery.ID.Hex()),
		}
	}
	if !req.EditMode && lottery.IsResolved() {
		return nil, nil, &models.StateError{
			Reason:  models.ReasonAlreadyResolved,
			Message: fmt.Sprintf("lottery %s already has winners; update them instead", lottery.ID.Hex()),
		}
	}

	for _, a := range req.Assignments {
		if _, ok := lottery.PrizeByRank(a.Rank); !ok {
			return nil, nil, &models.NotFoundError{Resource: "prize rank", ID: strconv.Itoa(a.Rank)}
		}
	}

	var violations []models.Violation
	winning := make([]int, len(lottery.Prizes))
	rankSeen := make(map[int]bool, len(req.Assignments))
	ticketSeen := make(map[int]bool, len(req.Assignments))
	numbers := make([]int, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		if rankSeen[a.Rank] {
			violations = append(violations, models.Violation{
				Rule:    models.RuleDuplicateRank,
				Rank:    a.Rank,
				Message: fmt.Sprintf("rank %d is assigned more than once", a.Rank),
			})
		}
		rankSeen[a.Rank] = true
		if ticketSeen[a.TicketNumber] {
			violations = append(violations, models.Violation{
				Rule:         models.RuleDuplicateTicket,
				Rank:         a.Rank,
				TicketNumber: a.TicketNumber,
				Message:      fmt.Sprintf("ticket %d is assigned to more than one rank", a.TicketNumber),
			})
			continue
		}
		ticketSeen[a.TicketNumber] = true
		numbers = append(numbers, a.TicketNumber)
		winning[a.Rank-1] = a.TicketNumber
	}
	for _, p := range lottery.Prizes {
		if !rankSeen[p.Rank] {
			violations = append(violations, models.Violation{
				Rule:    models.RuleUnassignedRank,
				Rank:    p.Rank,
				Message: fmt.Sprintf("rank %d (%s) has no winning ticket", p.Rank, p.Title),
			})
		}
	}

	tickets, err := s.ticketRepo.FindByNumbers(ctx, lottery.ID, numbers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	byNumber := make(map[int]*models.Ticket, len(tickets))
	for _, t := range tickets {
		byNumber[t.TicketNumber] = t
	}
	for _, a := range req.Assignments {
		if !ticketSeen[a.TicketNumber] {
			continue
		}
		delete(ticketSeen, a.TicketNumber)
		t, ok := byNumber[a.TicketNumber]
		eligible := ok && (t.Status == models.TicketStatusSold || (req.EditMode && t.Status == models.TicketStatusWinner))
		if !eligible {
			violations = append(violations, models.Violation{
				Rule:         models.RuleTicketNotSold,
				Rank:         a.Rank,
				TicketNumber: a.TicketNumber,
				Message:      fmt.Sprintf("ticket %d for rank %d is not a sold ticket of this lottery", a.TicketNumber, a.Rank),
			})
		}
	}

	if len(violations) > 0 {
		return nil, nil, &models.ValidationError{Violations: violations}
	}
	return lottery, winning, nil
}

func (s *WinnerResolver) commit(ctx context.Context, lottery *models.Lottery, req ResolveRequest, winning []int) error {
	if req.EditMode {
		if _, err := s.ticketRepo.ResetWinners(ctx, lottery.ID); err != nil {
			return fmt.Errorf("failed to reset winners: %w", err)
		}
	}
	for _, a := range req.Assignments {
		ok, err := s.ticketRepo.AssignWinner(ctx, lottery.ID, a.TicketNumber, a.Rank)
		if err != nil {
			return fmt.Errorf("failed to assign rank %d: %w", a.Rank, err)
		}
		if !ok {
			return &models.ConflictError{
				Reason:       models.ReasonConcurrentUpdate,
				TicketNumber: a.TicketNumber,
				Retryable:    true,
				Err:          fmt.Errorf("ticket %d changed while winners were being committed", a.TicketNumber),
			}
		}
	}
	ok, err := s.lotteryRepo.SetWinners(ctx, lottery.ID, winning, req.TikTokLink, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store winning numbers: %w", err)
	}
	if !ok {
		return &models.ConflictError{
			Reason:    models.ReasonConcurrentUpdate,
			Retryable: true,
			Err:       fmt.Errorf("lottery %s changed while winners were being committed", lottery.ID.Hex()),
		}
	}
	return nil
}

// Winners rebuilds the winner projection from winning tickets
func (s *WinnerResolver) Winners(ctx context.Context, lotteryID *primitive.ObjectID) ([]models.LotteryWinners, error) {
	if lotteryID != nil {
		if _, err := s.lotteryRepo.FindByID(ctx, *lotteryID); err != nil {
			return nil, err
		}
	}
	tickets, err := s.ticketRepo.FindWinners(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load winners: %w", err)
	}

	var ids []primitive.ObjectID
	groups := make(map[primitive.ObjectID]*models.LotteryWinners)
	for _, t := range tickets {
		if _, ok := groups[t.LotteryID]; !ok {
			ids = append(ids, t.LotteryID)
			groups[t.LotteryID] = &models.LotteryWinners{LotteryID: t.LotteryID, Winners: []models.Winner{}}
		}
	}
	lotteries, err := s.lotteryRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load lotteries: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.Lottery, len(lotteries))
	for _, l := range lotteries {
		byID[l.ID] = l
		groups[l.ID].LotteryName = l.Name
		groups[l.ID].TikTokStreamLink = l.TikTokStreamLink
	}
	for _, t := range tickets {
		g := groups[t.LotteryID]
		g.Winners = append(g.Winners, models.WinnerFromTicket(t, byID[t.LotteryID]))
	}

	result := make([]models.LotteryWinners, 0, len(ids))
	for _, id := range ids {
		result = append(result, *groups[id])
	}
	return result, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrState):
		return "invalid_state"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
