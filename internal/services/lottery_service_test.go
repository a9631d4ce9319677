package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLotteryManager_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lottery, err := f.lotteries.Create(ctx, CreateLotteryRequest{
		Name:        "  Friday Draw ",
		TicketCount: 100,
		TicketPrice: 200,
		Prizes:      []models.Prize{{Rank: 2, Title: "TV"}, {Rank: 1, Title: "Car"}},
	})
	require.NoError(t, err)
	assert.False(t, lottery.ID.IsZero())
	assert.Equal(t, "Friday Draw", lottery.Name)
	assert.Equal(t, models.LotteryStatusActive, lottery.Status)
	assert.Equal(t, 1, lottery.Prizes[0].Rank)
	assert.Equal(t, models.ResolutionSelling, lottery.Resolution())

	got, err := f.lotteries.Get(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, lottery.Prizes, got.Prizes)
}

func TestLotteryManager_CreateInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.lotteries.Create(context.Background(), CreateLotteryRequest{
		TicketCount: 1,
		TicketPrice: -1,
		Prizes:      []models.Prize{{Rank: 1, Title: "Car"}, {Rank: 3, Title: "TV"}},
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := map[string]bool{}
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["ticketPrice"])
	assert.True(t, fields["prizes"])
}

func TestLotteryManager_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.newLottery(t, 10, 1)
	ended := f.newLottery(t, 10, 1)
	f.end(t, ended)

	all, err := f.lotteries.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := f.lotteries.List(ctx, models.LotteryStatusActive)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)

	_, err = f.lotteries.List(ctx, "archived")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestLotteryManager_End(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 3)

	ended, err := f.lotteries.End(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotteryStatusEnded, ended.Status)
	assert.False(t, ended.EndedAt.IsZero())
	assert.Equal(t, models.ResolutionAwaitingResolution, ended.Resolution())

	_, err = f.lotteries.End(ctx, lottery.ID)
	assert.True(t, errors.Is(err, models.ErrState))

	_, err = f.lotteries.End(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestLotteryManager_Resize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 3)
	f.sell(t, lottery, 2, f.staff)
	f.sell(t, lottery, 7, f.staff)

	resized, err := f.lotteries.Resize(ctx, lottery.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, resized.TicketCount)

	resized, err = f.lotteries.Resize(ctx, lottery.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, resized.TicketCount)

	// two tickets sold, but number 7 would fall outside the pool
	_, err = f.lotteries.Resize(ctx, lottery.ID, 6)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasRule(models.RuleInvalidTicketCount))

	_, err = f.lotteries.Resize(ctx, lottery.ID, 0)
	assert.True(t, errors.Is(err, models.ErrValidation))

	f.end(t, lottery)
	_, err = f.lotteries.Resize(ctx, lottery.ID, 30)
	assert.True(t, errors.Is(err, models.ErrState))

	got, err := f.lotteries.Get(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.TicketCount)
}

func TestLotteryManager_DeleteTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 1)
	ticket := f.sell(t, lottery, 4, f.staff)

	require.NoError(t, f.lotteries.DeleteTicket(ctx, ticket.ID))
	err := f.lotteries.DeleteTicket(ctx, ticket.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	// the number is free again
	again := f.sell(t, lottery, 4, f.staff)

	f.end(t, lottery)
	_, err = f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{Rank: 1, TicketNumber: 4}},
	})
	require.NoError(t, err)

	err = f.lotteries.DeleteTicket(ctx, again.ID)
	assert.True(t, errors.Is(err, models.ErrState))
}

func TestLotteryManager_DeleteTicketRacingResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 1)
	ticket := f.sell(t, lottery, 4, f.staff)
	f.end(t, lottery)

	lotteries := &interleavedLotteries{LotteryRepository: f.store.Lotteries()}
	lotteries.afterFind = func(ctx context.Context) {
		_, err := f.winners.Resolve(ctx, ResolveRequest{
			LotteryID:   lottery.ID,
			Assignments: []Assignment{{Rank: 1, TicketNumber: 4}},
		})
		require.NoError(t, err)
	}
	manager := NewLotteryManager(lotteries, f.store.Tickets(), f.store)

	err := manager.DeleteTicket(ctx, ticket.ID)
	var serr *models.StateError
	require.True(t, errors.As(err, &serr), "got %v", err)
	assert.Equal(t, models.ReasonLotteryResolved, serr.Reason)

	kept, err := f.store.Tickets().FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, kept.TicketNumber)
}

func TestLotteryManager_Tickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 1)
	f.sell(t, lottery, 8, f.staff)
	f.sell(t, lottery, 3, f.staff)

	got, tickets, err := f.lotteries.Tickets(ctx, lottery.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, 3, tickets[0].TicketNumber)
	assert.Equal(t, models.TicketStatusSold, tickets[0].DisplayStatus(got))

	f.end(t, lottery)
	_, err = f.winners.Resolve(ctx, ResolveRequest{LotteryID: lottery.ID, Assignments: []Assignment{{1, 8}}})
	require.NoError(t, err)

	got, tickets, err = f.lotteries.Tickets(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusLost, tickets[0].DisplayStatus(got))
	assert.Equal(t, models.TicketStatusWinner, tickets[1].DisplayStatus(got))

	_, _, err = f.lotteries.Tickets(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
