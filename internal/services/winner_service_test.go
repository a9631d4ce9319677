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

// soldAndEnded returns an ended lottery of 10 tickets and 3 prizes with tickets 2, 5 and 7 sold
func soldAndEnded(t *testing.T, f *fixture) *models.Lottery {
	t.Helper()
	lottery := f.newLottery(t, 10, 3)
	for _, n := range []int{2, 5, 7} {
		f.sell(t, lottery, n, f.staff)
	}
	f.end(t, lottery)
	return lottery
}

func TestWinnerResolver_Resolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := soldAndEnded(t, f)

	resolved, err := f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:  lottery.ID,
		TikTokLink: "https://tiktok.com/@draws/live/1",
		Assignments: []Assignment{
			{Rank: 1, TicketNumber: 5},
			{Rank: 2, TicketNumber: 2},
			{Rank: 3, TicketNumber: 7},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 2, 7}, resolved.WinningTicketNumber)
	assert.Equal(t, "https://tiktok.com/@draws/live/1", resolved.TikTokStreamLink)
	assert.Equal(t, models.ResolutionResolved, resolved.Resolution())

	tickets := f.ticketsByNumber(t, lottery)
	for number, rank := range map[int]int{2: 2, 5: 1, 7: 3} {
		assert.Equal(t, models.TicketStatusWinner, tickets[number].Status)
		assert.Equal(t, rank, tickets[number].WinnerRank)
	}
}

func TestWinnerResolver_ResolveRejectsInvalidAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := soldAndEnded(t, f)
	before := f.ticketsByNumber(t, lottery)

	_, err := f.winners.Resolve(ctx, ResolveRequest{
		LotteryID: lottery.ID,
		Assignments: []Assignment{
			{Rank: 1, TicketNumber: 3},
			{Rank: 2, TicketNumber: 2},
		},
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasRule(models.RuleTicketNotSold))
	assert.True(t, verr.HasRule(models.RuleUnassignedRank))

	var namesTicket3, namesRank3 bool
	for _, v := range verr.Violations {
		if v.Rule == models.RuleTicketNotSold && v.TicketNumber == 3 {
			namesTicket3 = true
		}
		if v.Rule == models.RuleUnassignedRank && v.Rank == 3 {
			namesRank3 = true
		}
	}
	assert.True(t, namesTicket3)
	assert.True(t, namesRank3)

	assert.Equal(t, before, f.ticketsByNumber(t, lottery))
	got, err := f.lotteries.Get(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Empty(t, got.WinningTicketNumber)
}

func TestWinnerResolver_ResolveValidationRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := soldAndEnded(t, f)

	tests := []struct {
		name        string
		assignments []Assignment
		rule        string
	}{
		{"duplicate ticket", []Assignment{{1, 5}, {2, 5}, {3, 7}}, models.RuleDuplicateTicket},
		{"duplicate rank", []Assignment{{1, 5}, {1, 2}, {3, 7}}, models.RuleDuplicateRank},
		{"missing rank", []Assignment{{1, 5}, {2, 2}}, models.RuleUnassignedRank},
		{"unsold ticket", []Assignment{{1, 5}, {2, 2}, {3, 9}}, models.RuleTicketNotSold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.winners.Resolve(ctx, ResolveRequest{LotteryID: lottery.ID, Assignments: tt.assignments})
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.HasRule(tt.rule), "violations: %+v", verr.Violations)
		})
	}

	_, err := f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{1, 5}, {2, 2}, {4, 7}},
	})
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "prize rank", nf.Resource)

	_, err = f.winners.Resolve(ctx, ResolveRequest{LotteryID: primitive.NewObjectID()})
	assert.True(t, errors.Is(err, models.ErrNotFound))

	for _, tk := range f.ticketsByNumber(t, lottery) {
		assert.Equal(t, models.TicketStatusSold, tk.Status)
	}
}

func TestWinnerResolver_ResolveRequiresEndedLottery(t *testing.T) {
	f := newFixture(t)
	lottery := f.newLottery(t, 10, 1)
	f.sell(t, lottery, 1, f.staff)

	_, err := f.winners.Resolve(context.Background(), ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{Rank: 1, TicketNumber: 1}},
	})
	var serr *models.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, models.ReasonLotteryNotEnded, serr.Reason)
}

func TestWinnerResolver_EditModeSupersedes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := f.newLottery(t, 10, 3)
	for _, n := range []int{1, 2, 5, 7} {
		f.sell(t, lottery, n, f.staff)
	}
	f.end(t, lottery)

	_, err := f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{1, 5}, {2, 2}, {3, 7}},
	})
	require.NoError(t, err)

	first := f.ticketsByNumber(t, lottery)
	require.NoError(t, f.notices.MarkWinnerSent(ctx, first[5].ID))
	require.NoError(t, f.notices.MarkWinnerSent(ctx, first[1].ID))

	// entering winners again without edit mode is refused
	_, err = f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{1, 1}, {2, 5}, {3, 2}},
	})
	assert.True(t, errors.Is(err, models.ErrState))

	resolved, err := f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{1, 1}, {2, 5}, {3, 2}},
		EditMode:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 2}, resolved.WinningTicketNumber)

	tickets := f.ticketsByNumber(t, lottery)
	assert.Equal(t, models.TicketStatusSold, tickets[7].Status)
	assert.Zero(t, tickets[7].WinnerRank)
	assert.Equal(t, 1, tickets[1].WinnerRank)
	assert.Equal(t, 2, tickets[5].WinnerRank)
	assert.Equal(t, 3, tickets[2].WinnerRank)
	// every winner of the new assignment still has to be told
	assert.False(t, tickets[5].WinnerSMSSent)
	assert.False(t, tickets[1].WinnerSMSSent)
	assert.False(t, tickets[7].WinnerSMSSent)
}

func TestWinnerResolver_CommitFailureLeavesNoPartialState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := soldAndEnded(t, f)
	before := f.ticketsByNumber(t, lottery)

	f.store.InjectFault("SetWinners", errors.New("primary stepped down"))
	_, err := f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{1, 5}, {2, 2}, {3, 7}},
	})
	require.Error(t, err)
	assert.Equal(t, before, f.ticketsByNumber(t, lottery))

	f.store.InjectFault("SetWinners", nil)
	_, err = f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{1, 5}, {2, 2}, {3, 7}},
	})
	require.NoError(t, err)
}

func TestWinnerResolver_MidCommitMismatchIsRetryableConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := soldAndEnded(t, f)
	req := ResolveRequest{
		LotteryID:   lottery.ID,
		Assignments: []Assignment{{1, 5}, {2, 2}, {3, 7}},
	}
	validated, winning, err := f.winners.validate(ctx, req)
	require.NoError(t, err)

	// ticket 7 is removed between validation and commit
	require.NoError(t, f.store.Tickets().Delete(ctx, f.ticketsByNumber(t, lottery)[7].ID))

	err = f.store.WithTransaction(ctx, func(ctx context.Context) error {
		return f.winners.commit(ctx, validated, req, winning)
	})
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, conflict.Retryable)
	assert.Equal(t, models.ReasonConcurrentUpdate, conflict.Reason)
	assert.Equal(t, 7, conflict.TicketNumber)

	for _, tk := range f.ticketsByNumber(t, lottery) {
		assert.Equal(t, models.TicketStatusSold, tk.Status)
	}
	got, err := f.lotteries.Get(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Empty(t, got.WinningTicketNumber)
}

func TestWinnerResolver_Winners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lottery := soldAndEnded(t, f)
	_, err := f.winners.Resolve(ctx, ResolveRequest{
		LotteryID:   lottery.ID,
		TikTokLink:  "https://tiktok.com/live",
		Assignments: []Assignment{{1, 5}, {2, 2}, {3, 7}},
	})
	require.NoError(t, err)

	groups, err := f.winners.Winners(ctx, &lottery.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Weekend Draw", groups[0].LotteryName)
	assert.Equal(t, "https://tiktok.com/live", groups[0].TikTokStreamLink)
	require.Len(t, groups[0].Winners, 3)
	assert.Equal(t, 1, groups[0].Winners[0].Rank)
	assert.Equal(t, 5, groups[0].Winners[0].TicketNumber)
	assert.Equal(t, "Car", groups[0].Winners[0].PrizeTitle)

	all, err := f.winners.Winners(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
