package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.LotteryRepository  = (*LotteryRepository)(nil)
	_ repositories.TicketRepository   = (*TicketRepository)(nil)
	_ repositories.CustomerRepository = (*CustomerRepository)(nil)
	_ repositories.SellerRepository   = (*SellerRepository)(nil)
)

// LotteryRepository is the in-memory lottery collection
type LotteryRepository struct{ s *Store }

func (r *LotteryRepository) Create(ctx context.Context, lottery *models.Lottery) error {
	defer r.s.lock(ctx)()
	now := time.Now()
	lottery.ID = primitive.NewObjectID()
	lottery.CreatedAt = now
	lottery.UpdatedAt = now
	stored := *lottery
	stored.Prizes = append([]models.Prize(nil), lottery.Prizes...)
	r.s.data.lotteries[lottery.ID] = stored
	return nil
}

func (r *LotteryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.data.lotteries[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "lottery", ID: id.Hex()}
	}
	return copyLottery(l), nil
}

func (r *LotteryRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Lottery, error) {
	defer r.s.lock(ctx)()
	out := []*models.Lottery{}
	for _, id := range ids {
		if l, ok := r.s.data.lotteries[id]; ok {
			out = append(out, copyLottery(l))
		}
	}
	return out, nil
}

func (r *LotteryRepository) FindAll(ctx context.Context, status models.LotteryStatus) ([]*models.Lottery, error) {
	defer r.s.lock(ctx)()
	out := []*models.Lottery{}
	for _, l := range r.s.data.lotteries {
		if status == "" || l.Status == status {
			out = append(out, copyLottery(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *LotteryRepository) FindResolved(ctx context.Context) ([]*models.Lottery, error) {
	defer r.s.lock(ctx)()
	out := []*models.Lottery{}
	for _, l := range r.s.data.lotteries {
		if l.IsResolved() {
			out = append(out, copyLottery(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResolvedAt.After(out[j].ResolvedAt) })
	return out, nil
}

func (r *LotteryRepository) MarkEnded(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.data.lotteries[id]
	if !ok || l.Status != models.LotteryStatusActive {
		return false, nil
	}
	l.Status = models.LotteryStatusEnded
	l.EndedAt = at
	l.UpdatedAt = at
	r.s.data.lotteries[id] = l
	return true, nil
}

func (r *LotteryRepository) UpdateTicketCount(ctx context.Context, id primitive.ObjectID, ticketCount int) (bool, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.data.lotteries[id]
	if !ok || l.Status != models.LotteryStatusActive {
		return false, nil
	}
	l.TicketCount = ticketCount
	l.UpdatedAt = time.Now()
	r.s.data.lotteries[id] = l
	return true, nil
}

func (r *LotteryRepository) SetWinners(ctx context.Context, id primitive.ObjectID, winningNumbers []int, streamLink string, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("SetWinners"); err != nil {
		return false, err
	}
	l, ok := r.s.data.lotteries[id]
	if !ok || l.Status != models.LotteryStatusEnded {
		return false, nil
	}
	l.WinningTicketNumber = append([]int(nil), winningNumbers...)
	l.TikTokStreamLink = streamLink
	l.ResolvedAt = at
	l.UpdatedAt = at
	r.s.data.lotteries[id] = l
	return true, nil
}

func (r *LotteryRepository) ClaimForSale(ctx context.Context, id primitive.ObjectID, ticketNumber int, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.data.lotteries[id]
	if !ok || l.Status != models.LotteryStatusActive || ticketNumber > l.TicketCount {
		return false, nil
	}
	l.UpdatedAt = at
	r.s.data.lotteries[id] = l
	return true, nil
}

func (r *LotteryRepository) GuardUnresolved(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.data.lotteries[id]
	if !ok || len(l.WinningTicketNumber) > 0 {
		return false, nil
	}
	l.UpdatedAt = at
	r.s.data.lotteries[id] = l
	return true, nil
}

func copyLottery(l models.Lottery) *models.Lottery {
	l.Prizes = append([]models.Prize(nil), l.Prizes...)
	if l.WinningTicketNumber != nil {
		l.WinningTicketNumber = append([]int(nil), l.WinningTicketNumber...)
	}
	return &l
}

// TicketRepository is the in-memory ticket collection with a unique
// (lotteryId, ticketNumber) index
type TicketRepository struct{ s *Store }

func (r *TicketRepository) Insert(ctx context.Context, ticket *models.Ticket) error {
	defer r.s.lock(ctx)()
	if err := r.s.fault("Insert"); err != nil {
		return err
	}
	key := ticketKey{lotteryID: ticket.LotteryID, number: ticket.TicketNumber}
	if _, taken := r.s.data.numbers[key]; taken {
		return fmt.Errorf("%w: lotteryId %s ticketNumber %d", models.ErrDuplicate, ticket.LotteryID.Hex(), ticket.TicketNumber)
	}
	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	r.s.data.tickets[ticket.ID] = *ticket
	r.s.data.numbers[key] = ticket.ID
	return nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.data.tickets[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "ticket", ID: id.Hex()}
	}
	return &t, nil
}

func (r *TicketRepository) FindByNumbers(ctx context.Context, lotteryID primitive.ObjectID, numbers []int) ([]*models.Ticket, error) {
	defer r.s.lock(ctx)()
	out := []*models.Ticket{}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			continue
		}
		seen[n] = true
		if id, ok := r.s.data.numbers[ticketKey{lotteryID: lotteryID, number: n}]; ok {
			t := r.s.data.tickets[id]
			out = append(out, &t)
		}
	}
	sortByNumber(out)
	return out, nil
}

func (r *TicketRepository) FindByLottery(ctx context.Context, lotteryID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.filter(ctx, func(t *models.Ticket) bool { return t.LotteryID == lotteryID }), nil
}

func (r *TicketRepository) SoldNumbers(ctx context.Context, lotteryID primitive.ObjectID) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for _, t := range r.filter(ctx, func(t *models.Ticket) bool { return t.LotteryID == lotteryID }) {
			if !yield(t.TicketNumber, nil) {
				return
			}
		}
	}
}

func (r *TicketRepository) CountByLottery(ctx context.Context, lotteryID primitive.ObjectID) (int64, error) {
	return int64(len(r.filter(ctx, func(t *models.Ticket) bool { return t.LotteryID == lotteryID }))), nil
}

func (r *TicketRepository) MaxTicketNumber(ctx context.Context, lotteryID primitive.ObjectID) (int, error) {
	tickets := r.filter(ctx, func(t *models.Ticket) bool { return t.LotteryID == lotteryID })
	if len(tickets) == 0 {
		return 0, nil
	}
	return tickets[len(tickets)-1].TicketNumber, nil
}

func (r *TicketRepository) FindSoldBetween(ctx context.Context, from, to time.Time) ([]*models.Ticket, error) {
	out := r.filter(ctx, func(t *models.Ticket) bool {
		return !t.SoldAt.Before(from) && t.SoldAt.Before(to)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].SoldAt.Before(out[j].SoldAt) })
	return out, nil
}

func (r *TicketRepository) FindWinners(ctx context.Context, lotteryID *primitive.ObjectID) ([]*models.Ticket, error) {
	out := r.filter(ctx, func(t *models.Ticket) bool {
		return t.Status == models.TicketStatusWinner && (lotteryID == nil || t.LotteryID == *lotteryID)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LotteryID != out[j].LotteryID {
			return out[i].LotteryID.Hex() < out[j].LotteryID.Hex()
		}
		return out[i].WinnerRank < out[j].WinnerRank
	})
	return out, nil
}

func (r *TicketRepository) FindPendingSaleSMS(ctx context.Context, lotteryID *primitive.ObjectID) ([]*models.Ticket, error) {
	out := r.filter(ctx, func(t *models.Ticket) bool {
		return !t.SMSSent && (lotteryID == nil || t.LotteryID == *lotteryID)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].SoldAt.Before(out[j].SoldAt) })
	return out, nil
}

func (r *TicketRepository) FindPendingResultSMS(ctx context.Context, lotteryIDs []primitive.ObjectID) ([]*models.Ticket, error) {
	in := make(map[primitive.ObjectID]bool, len(lotteryIDs))
	for _, id := range lotteryIDs {
		in[id] = true
	}
	return r.filter(ctx, func(t *models.Ticket) bool {
		return in[t.LotteryID] && !t.WinnerSMSSent
	}), nil
}

func (r *TicketRepository) ResetWinners(ctx context.Context, lotteryID primitive.ObjectID) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for id, t := range r.s.data.tickets {
		if t.LotteryID != lotteryID || t.Status != models.TicketStatusWinner {
			continue
		}
		t.Status = models.TicketStatusSold
		t.WinnerRank = 0
		t.WinnerSMSSent = false
		t.WinnerSMSSentAt = time.Time{}
		r.s.data.tickets[id] = t
		n++
	}
	return n, nil
}

func (r *TicketRepository) AssignWinner(ctx context.Context, lotteryID primitive.ObjectID, ticketNumber, rank int) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("AssignWinner"); err != nil {
		return false, err
	}
	id, ok := r.s.data.numbers[ticketKey{lotteryID: lotteryID, number: ticketNumber}]
	if !ok {
		return false, nil
	}
	t := r.s.data.tickets[id]
	if t.Status != models.TicketStatusSold {
		return false, nil
	}
	t.Status = models.TicketStatusWinner
	t.WinnerRank = rank
	t.WinnerSMSSent = false
	t.WinnerSMSSentAt = time.Time{}
	r.s.data.tickets[id] = t
	return true, nil
}

func (r *TicketRepository) MarkSMSSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.data.tickets[id]
	if !ok || t.SMSSent {
		return false, nil
	}
	t.SMSSent = true
	t.SMSSentAt = at
	r.s.data.tickets[id] = t
	return true, nil
}

func (r *TicketRepository) MarkWinnerSMSSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.data.tickets[id]
	if !ok || t.WinnerSMSSent {
		return false, nil
	}
	t.WinnerSMSSent = true
	t.WinnerSMSSentAt = at
	r.s.data.tickets[id] = t
	return true, nil
}

func (r *TicketRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	t, ok := r.s.data.tickets[id]
	if !ok {
		return &models.NotFoundError{Resource: "ticket", ID: id.Hex()}
	}
	delete(r.s.data.tickets, id)
	delete(r.s.data.numbers, ticketKey{lotteryID: t.LotteryID, number: t.TicketNumber})
	return nil
}

// filter returns copies of matching tickets ordered by lottery and number
func (r *TicketRepository) filter(ctx context.Context, keep func(t *models.Ticket) bool) []*models.Ticket {
	defer r.s.lock(ctx)()
	out := []*models.Ticket{}
	for _, t := range r.s.data.tickets {
		t := t
		if keep(&t) {
			out = append(out, &t)
		}
	}
	sortByNumber(out)
	return out
}

func sortByNumber(tickets []*models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].LotteryID != tickets[j].LotteryID {
			return tickets[i].LotteryID.Hex() < tickets[j].LotteryID.Hex()
		}
		return tickets[i].TicketNumber < tickets[j].TicketNumber
	})
}

// CustomerRepository is the in-memory customer collection keyed by phone
type CustomerRepository struct{ s *Store }

func (r *CustomerRepository) UpsertByPhone(ctx context.Context, name, phone string) (*models.Customer, error) {
	defer r.s.lock(ctx)()
	now := time.Now()
	c, ok := r.s.data.customers[phone]
	if !ok {
		c = models.Customer{ID: primitive.NewObjectID(), Name: name, Phone: phone, CreatedAt: now}
	}
	c.UpdatedAt = now
	r.s.data.customers[phone] = c
	return &c, nil
}

func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.customers[phone]
	if !ok {
		return nil, &models.NotFoundError{Resource: "customer", ID: phone}
	}
	return &c, nil
}

// SellerRepository is the in-memory seller collection
type SellerRepository struct{ s *Store }

func (r *SellerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Seller, error) {
	defer r.s.lock(ctx)()
	seller, ok := r.s.data.sellers[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "seller", ID: id.Hex()}
	}
	return &seller, nil
}

func (r *SellerRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Seller, error) {
	defer r.s.lock(ctx)()
	out := []*models.Seller{}
	for _, id := range ids {
		if seller, ok := r.s.data.sellers[id]; ok {
			out = append(out, &seller)
		}
	}
	return out, nil
}
