package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
)

func TestIsSellable(t *testing.T) {
	lottery := &models.Lottery{TicketCount: 10, Status: models.LotteryStatusActive}

	assert.True(t, IsSellable(lottery, 1, false))
	assert.True(t, IsSellable(lottery, 10, false))
	assert.False(t, IsSellable(lottery, 0, false))
	assert.False(t, IsSellable(lottery, 11, false))
	assert.False(t, IsSellable(lottery, 5, true))

	lottery.Status = models.LotteryStatusEnded
	assert.False(t, IsSellable(lottery, 5, false))
}

func TestCanResize(t *testing.T) {
	lottery := &models.Lottery{
		TicketCount: 10,
		Status:      models.LotteryStatusActive,
		Prizes:      []models.Prize{{Rank: 1, Title: "Car"}, {Rank: 2, Title: "TV"}},
	}

	tests := []struct {
		name     string
		newCount int
		sold     int64
		highest  int
		want     bool
	}{
		{"grow", 20, 3, 7, true},
		{"shrink to sold count", 3, 3, 3, true},
		{"below sold count", 2, 3, 3, false},
		{"below highest sold number", 5, 3, 7, false},
		{"below prize count", 1, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := CanResize(lottery, tt.newCount, tt.sold, tt.highest)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	lottery.Status = models.LotteryStatusEnded
	_, err := CanResize(lottery, 20, 0, 0)
	assert.True(t, errors.Is(err, models.ErrState))
}
