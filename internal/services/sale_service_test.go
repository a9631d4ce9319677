package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSaleAllocator_Sell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 3)

	ticket, err := f.sales.Sell(ctx, SaleRequest{
		LotteryID:     lottery.ID,
		TicketNumber:  5,
		CustomerName:  "Chidi Okafor",
		CustomerPhone: "0803 123 4567",
		SellerID:      f.staff.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, ticket.TicketNumber)
	assert.Equal(t, models.TicketStatusSold, ticket.Status)
	assert.False(t, ticket.SMSSent)
	assert.Equal(t, "08031234567", ticket.Customer.Phone)
	assert.Equal(t, f.staff.ID, ticket.SoldBy)

	customer, err := f.store.Customers().FindByPhone(ctx, "08031234567")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, ticket.CustomerID)

	// the same phone reuses the customer
	second, err := f.sales.Sell(ctx, SaleRequest{
		LotteryID:     lottery.ID,
		TicketNumber:  6,
		CustomerName:  "Chidi Okafor",
		CustomerPhone: "0803-123-4567",
		SellerID:      f.agent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, customer.ID, second.CustomerID)

	// the lottery is never touched by a sale
	got, err := f.lotteries.Get(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, lottery.TicketCount, got.TicketCount)
	assert.Equal(t, lottery.UpdatedAt, got.UpdatedAt)
}

func TestSaleAllocator_SellAlreadySold(t *testing.T) {
	f := newFixture(t)
	lottery := f.newLottery(t, 10, 3)
	f.sell(t, lottery, 5, f.staff)

	_, err := f.sales.Sell(context.Background(), SaleRequest{
		LotteryID:     lottery.ID,
		TicketNumber:  5,
		CustomerName:  "Late Buyer",
		CustomerPhone: "08099999999",
		SellerID:      f.agent.ID,
	})
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.ReasonTicketAlreadySold, conflict.Reason)
	assert.Equal(t, 5, conflict.TicketNumber)
	assert.False(t, conflict.Retryable)
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestSaleAllocator_SellRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 3)
	ended := f.newLottery(t, 10, 3)
	f.end(t, ended)
	inactive := f.store.PutSeller(models.Seller{Name: "Gone", Kind: models.SellerKindAgent, Active: false})

	valid := SaleRequest{
		LotteryID:     lottery.ID,
		TicketNumber:  3,
		CustomerName:  "Ngozi",
		CustomerPhone: "08012345678",
		SellerID:      f.staff.ID,
	}

	tests := []struct {
		name   string
		mutate func(r *SaleRequest)
		kind   error
		rule   string
	}{
		{"zero ticket number", func(r *SaleRequest) { r.TicketNumber = 0 }, models.ErrValidation, models.RuleInvalidTicketNumber},
		{"above ticket count", func(r *SaleRequest) { r.TicketNumber = 11 }, models.ErrValidation, models.RuleInvalidTicketNumber},
		{"bad phone", func(r *SaleRequest) { r.CustomerPhone = "12345" }, models.ErrValidation, models.RuleInvalidCustomer},
		{"missing name", func(r *SaleRequest) { r.CustomerName = " " }, models.ErrValidation, models.RuleInvalidCustomer},
		{"inactive seller", func(r *SaleRequest) { r.SellerID = inactive.ID }, models.ErrValidation, models.RuleInactiveSeller},
		{"unknown seller", func(r *SaleRequest) { r.SellerID = primitive.NewObjectID() }, models.ErrNotFound, ""},
		{"unknown lottery", func(r *SaleRequest) { r.LotteryID = primitive.NewObjectID() }, models.ErrNotFound, ""},
		{"ended lottery", func(r *SaleRequest) { r.LotteryID = ended.ID }, models.ErrState, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.sales.Sell(ctx, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			if tt.rule != "" {
				var verr *models.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.True(t, verr.HasRule(tt.rule))
			}
		})
	}

	count, err := f.store.Tickets().CountByLottery(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSaleAllocator_ConcurrentSellsOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 3)

	const callers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sales.Sell(ctx, SaleRequest{
				LotteryID:     lottery.ID,
				TicketNumber:  5,
				CustomerName:  "Buyer",
				CustomerPhone: "08012345678",
				SellerID:      f.staff.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
	tickets := f.ticketsByNumber(t, lottery)
	assert.Len(t, tickets, 1)
	assert.Contains(t, tickets, 5)
}

func TestSaleAllocator_LifecycleChangeDuringSale(t *testing.T) {
	tests := []struct {
		name   string
		number int
		change func(t *testing.T, f *fixture, ctx context.Context, lottery *models.Lottery)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "ended after the read",
			number: 3,
			change: func(t *testing.T, f *fixture, ctx context.Context, lottery *models.Lottery) {
				_, err := f.lotteries.End(ctx, lottery.ID)
				require.NoError(t, err)
			},
			check: func(t *testing.T, err error) {
				var serr *models.StateError
				require.True(t, errors.As(err, &serr), "got %v", err)
				assert.Equal(t, models.ReasonLotteryNotActive, serr.Reason)
			},
		},
		{
			name:   "shrunk below the number after the read",
			number: 9,
			change: func(t *testing.T, f *fixture, ctx context.Context, lottery *models.Lottery) {
				_, err := f.lotteries.Resize(ctx, lottery.ID, 5)
				require.NoError(t, err)
			},
			check: func(t *testing.T, err error) {
				var verr *models.ValidationError
				require.True(t, errors.As(err, &verr), "got %v", err)
				assert.True(t, verr.HasRule(models.RuleInvalidTicketNumber))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			lottery := f.newLottery(t, 10, 3)

			lotteries := &interleavedLotteries{LotteryRepository: f.store.Lotteries()}
			lotteries.afterFind = func(ctx context.Context) { tt.change(t, f, ctx, lottery) }
			sales := NewSaleAllocator(lotteries, f.store.Tickets(), f.store.Customers(), f.store.Sellers(), f.store, f.phones)

			_, err := sales.Sell(ctx, SaleRequest{
				LotteryID:     lottery.ID,
				TicketNumber:  tt.number,
				CustomerName:  "Buyer",
				CustomerPhone: "08012345678",
				SellerID:      f.staff.ID,
			})
			tt.check(t, err)
			assert.Nil(t, lotteries.afterFind, "lifecycle change did not run")

			count, err := f.store.Tickets().CountByLottery(ctx, lottery.ID)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestSaleAllocator_ListSold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 3)
	other := f.newLottery(t, 10, 3)
	for _, n := range []int{7, 2, 5} {
		f.sell(t, lottery, n, f.staff)
	}
	f.sell(t, other, 1, f.staff)

	seq, err := f.sales.ListSold(ctx, lottery.ID)
	require.NoError(t, err)

	collect := func() []int {
		var out []int
		for n, err := range seq {
			require.NoError(t, err)
			out = append(out, n)
		}
		return out
	}
	assert.Equal(t, []int{2, 5, 7}, collect())

	// ranging again re-reads committed state
	f.sell(t, lottery, 9, f.staff)
	assert.Equal(t, []int{2, 5, 7, 9}, collect())

	_, err = f.sales.ListSold(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
