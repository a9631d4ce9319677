package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"github.com/ticketdesk/lottery-backoffice/internal/utils"
)

type fixture struct {
	store       *memory.Store
	lotteries   *LotteryManager
	sales       *SaleAllocator
	winners     *WinnerResolver
	notices     *NotificationTracker
	commissions *CommissionCalculator
	phones      *utils.PhoneValidator
	staff       models.Seller
	agent       models.Seller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	phones, err := utils.NewPhoneValidator([]string{`^0\d{9,10}$`, `^\+\d{11,13}$`})
	require.NoError(t, err)

	f := &fixture{
		store:       store,
		phones:      phones,
		lotteries:   NewLotteryManager(store.Lotteries(), store.Tickets(), store),
		sales:       NewSaleAllocator(store.Lotteries(), store.Tickets(), store.Customers(), store.Sellers(), store, phones),
		winners:     NewWinnerResolver(store.Lotteries(), store.Tickets(), store),
		notices:     NewNotificationTracker(store.Lotteries(), store.Tickets()),
		commissions: NewCommissionCalculator(store.Lotteries(), store.Tickets(), store.Sellers(), 100, time.Monday),
	}
	f.staff = store.PutSeller(models.Seller{Name: "Ada", Kind: models.SellerKindStaff, Active: true})
	f.agent = store.PutSeller(models.Seller{Name: "Bola", Kind: models.SellerKindAgent, CommissionRate: 10, Active: true})
	return f
}

// newLottery creates an active lottery with ticketCount tickets and prizes ranks 1..prizes
func (f *fixture) newLottery(t *testing.T, ticketCount, prizes int) *models.Lottery {
	t.Helper()
	req := CreateLotteryRequest{
		Name:                "Weekend Draw",
		TicketCount:         ticketCount,
		TicketPrice:         500,
		CommissionPerTicket: 20,
	}
	titles := []string{"Car", "Motorbike", "Phone", "Radio", "Voucher"}
	for r := 1; r <= prizes; r++ {
		req.Prizes = append(req.Prizes, models.Prize{Rank: r, Title: titles[(r-1)%len(titles)]})
	}
	lottery, err := f.lotteries.Create(context.Background(), req)
	require.NoError(t, err)
	return lottery
}

func (f *fixture) sell(t *testing.T, lottery *models.Lottery, number int, seller models.Seller) *models.Ticket {
	t.Helper()
	ticket, err := f.sales.Sell(context.Background(), SaleRequest{
		LotteryID:     lottery.ID,
		TicketNumber:  number,
		CustomerName:  "Customer",
		CustomerPhone: "0801234567" + string(rune('0'+number%10)),
		SellerID:      seller.ID,
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) end(t *testing.T, lottery *models.Lottery) {
	t.Helper()
	_, err := f.lotteries.End(context.Background(), lottery.ID)
	require.NoError(t, err)
}

func (f *fixture) ticketsByNumber(t *testing.T, lottery *models.Lottery) map[int]*models.Ticket {
	t.Helper()
	tickets, err := f.store.Tickets().FindByLottery(context.Background(), lottery.ID)
	require.NoError(t, err)
	out := make(map[int]*models.Ticket, len(tickets))
	for _, tk := range tickets {
		out[tk.TicketNumber] = tk
	}
	return out
}

// interleavedLotteries runs afterFind once, right after the next FindByID,
// with the caller's context. It lets a test land a write between a read and
// the write that depends on it.
type interleavedLotteries struct {
	repositories.LotteryRepository
	afterFind func(ctx context.Context)
}

func (r *interleavedLotteries) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error) {
	lottery, err := r.LotteryRepository.FindByID(ctx, id)
	if hook := r.afterFind; hook != nil {
		r.afterFind = nil
		hook(ctx)
	}
	return lottery, err
}
