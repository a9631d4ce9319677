package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	"github.com/ticketdesk/lottery-backoffice/internal/metrics"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure NotificationTracker implements NotificationService
var _ NotificationService = (*NotificationTracker)(nil)

// NotificationTracker exposes the SMS queues operators work through and
// records their acknowledgments. Messages are sent by the operator from an
// external device; nothing here delivers or retries.
type NotificationTracker struct {
	lotteryRepo repositories.LotteryRepository
	ticketRepo  repositories.TicketRepository
}

// NewNotificationTracker creates a new NotificationTracker
func NewNotificationTracker(
	lotteryRepo repositories.LotteryRepository,
	ticketRepo repositories.TicketRepository,
) *NotificationTracker {
	return &NotificationTracker{
		lotteryRepo: lotteryRepo,
		ticketRepo:  ticketRepo,
	}
}

// PendingSale lists tickets whose sale confirmation has not been acknowledged
func (s *NotificationTracker) PendingSale(ctx context.Context, lotteryID *primitive.ObjectID) ([]models.PendingNotification, error) {
	tickets, err := s.ticketRepo.FindPendingSaleSMS(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending sale SMS: %w", err)
	}
	lotteries, err := s.lotteriesOf(ctx, tickets)
	if err != nil {
		return nil, err
	}

	pending := make([]models.PendingNotification, 0, len(tickets))
	for _, t := range tickets {
		l := lotteries[t.LotteryID]
		n := pendingRow(models.NotificationSale, t, l)
		n.Message = fmt.Sprintf("Dear %s, your ticket #%d for %s is confirmed. Good luck!",
			t.Customer.Name, t.TicketNumber, n.LotteryName)
		pending = append(pending, n)
	}
	return pending, nil
}

// PendingWinner lists result announcements still to be sent for resolved
// lotteries, split into winners and everyone else
func (s *NotificationTracker) PendingWinner(ctx context.Context, lotteryID *primitive.ObjectID) (*models.PendingWinnerQueue, error) {
	var resolved []*models.Lottery
	if lotteryID != nil {
		lottery, err := s.lotteryRepo.FindByID(ctx, *lotteryID)
		if err != nil {
			return nil, err
		}
		if lottery.IsResolved() {
			resolved = append(resolved, lottery)
		}
	} else {
		var err error
		if resolved, err = s.lotteryRepo.FindResolved(ctx); err != nil {
			return nil, fmt.Errorf("failed to load resolved lotteries: %w", err)
		}
	}

	queue := &models.PendingWinnerQueue{Winners: []models.PendingNotification{}, Others: []models.PendingNotification{}}
	if len(resolved) == 0 {
		return queue, nil
	}
	ids := make([]primitive.ObjectID, 0, len(resolved))
	byID := make(map[primitive.ObjectID]*models.Lottery, len(resolved))
	for _, l := range resolved {
		ids = append(ids, l.ID)
		byID[l.ID] = l
	}

	tickets, err := s.ticketRepo.FindPendingResultSMS(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending result SMS: %w", err)
	}
	for _, t := range tickets {
		l := byID[t.LotteryID]
		if t.IsWinner() {
			n := pendingRow(models.NotificationWinner, t, l)
			n.Message = winnerMessage(t, l)
			queue.Winners = append(queue.Winners, n)
			continue
		}
		n := pendingRow(models.NotificationResult, t, l)
		n.Message = resultMessage(t, l)
		queue.Others = append(queue.Others, n)
	}
	return queue, nil
}

// MarkSaleSent records that the sale confirmation was sent. Repeating the
// call keeps the first timestamp.
func (s *NotificationTracker) MarkSaleSent(ctx context.Context, ticketID primitive.ObjectID) error {
	marked, err := s.ticketRepo.MarkSMSSent(ctx, ticketID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark sale SMS sent: %w", err)
	}
	if !marked {
		// already sent, or no such ticket
		_, err := s.ticketRepo.FindByID(ctx, ticketID)
		return err
	}
	metrics.SMSAcknowledged.WithLabelValues(string(models.NotificationSale)).Inc()
	logger.FromContext(ctx).Info("Sale SMS acknowledged", "ticket_id", ticketID.Hex())
	return nil
}

// MarkWinnerSent records that the result announcement was sent to the ticket
// holder. Only tickets of resolved lotteries have a result to announce.
func (s *NotificationTracker) MarkWinnerSent(ctx context.Context, ticketID primitive.ObjectID) error {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.WinnerSMSSent {
		return nil
	}
	lottery, err := s.lotteryRepo.FindByID(ctx, ticket.LotteryID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if lottery == nil || !lottery.IsResolved() {
		return &models.StateError{
			Reason:  models.ReasonNotResolved,
			Message: fmt.Sprintf("ticket %d has no result to announce yet", ticket.TicketNumber),
		}
	}

	marked, err := s.ticketRepo.MarkWinnerSMSSent(ctx, ticketID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark winner SMS sent: %w", err)
	}
	if marked {
		kind := models.NotificationResult
		if ticket.IsWinner() {
			kind = models.NotificationWinner
		}
		metrics.SMSAcknowledged.WithLabelValues(string(kind)).Inc()
		logger.FromContext(ctx).Info("Result SMS acknowledged", "ticket_id", ticketID.Hex(), "kind", kind)
	}
	return nil
}

func (s *NotificationTracker) lotteriesOf(ctx context.Context, tickets []*models.Ticket) (map[primitive.ObjectID]*models.Lottery, error) {
	ids, _ := referencedIDs(tickets)
	lotteries, err := s.lotteryRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load lotteries: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.Lottery, len(lotteries))
	for _, l := range lotteries {
		byID[l.ID] = l
	}
	return byID, nil
}

func pendingRow(kind models.NotificationKind, t *models.Ticket, l *models.Lottery) models.PendingNotification {
	n := models.PendingNotification{
		Kind:         kind,
		TicketID:     t.ID,
		LotteryID:    t.LotteryID,
		TicketNumber: t.TicketNumber,
		Customer:     t.Customer,
		WinnerRank:   t.WinnerRank,
	}
	if l != nil {
		n.LotteryName = l.Name
	}
	return n
}

func winnerMessage(t *models.Ticket, l *models.Lottery) string {
	prize := "rank " + strconv.Itoa(t.WinnerRank)
	if p, ok := l.PrizeByRank(t.WinnerRank); ok {
		prize = p.Title
	}
	msg := fmt.Sprintf("Congratulations %s! Your ticket #%d won %s in %s.", t.Customer.Name, t.TicketNumber, prize, l.Name)
	if l.TikTokStreamLink != "" {
		msg += " Watch the draw: " + l.TikTokStreamLink
	}
	return msg
}

func resultMessage(t *models.Ticket, l *models.Lottery) string {
	numbers := make([]string, 0, len(l.WinningTicketNumber))
	for _, n := range l.WinningTicketNumber {
		numbers = append(numbers, "#"+strconv.Itoa(n))
	}
	return fmt.Sprintf("Dear %s, thank you for playing %s. Your ticket #%d did not win this time. Winning tickets: %s.",
		t.Customer.Name, l.Name, t.TicketNumber, strings.Join(numbers, ", "))
}
