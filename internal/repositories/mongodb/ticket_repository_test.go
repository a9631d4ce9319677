package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestTicketRepository(t *testing.T) {
	mt := mtest.New(t, mockOptions())
	defer mt.Close()
	ctx := context.Background()
	lotteryID := primitive.NewObjectID()

	mt.Run("insert of a sold number is a duplicate", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: tickets index: lottery_ticket_number_unique",
		}))

		err := repo.Insert(ctx, &models.Ticket{LotteryID: lotteryID, TicketNumber: 5, Status: models.TicketStatusSold})
		assert.ErrorIs(mt, err, models.ErrDuplicate)
	})

	mt.Run("insert assigns an id", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		ticket := &models.Ticket{LotteryID: lotteryID, TicketNumber: 6, Status: models.TicketStatusSold}
		require.NoError(mt, repo.Insert(ctx, ticket))
		assert.False(mt, ticket.ID.IsZero())

		cmd := sentCommand(mt, "insert")
		doc := cmd.Lookup("documents", "0").Document()
		assert.Equal(mt, ticket.ID, doc.Lookup("_id").ObjectID())
	})

	mt.Run("missing ticket is not found", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+"."+TicketsCollection, mtest.FirstBatch))

		_, err := repo.FindByID(ctx, primitive.NewObjectID())
		var nf *models.NotFoundError
		require.ErrorAs(mt, err, &nf)
		assert.Equal(mt, "ticket", nf.Resource)
	})

	mt.Run("sms flag is only set while unset", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB)
		mt.AddMockResponses(updateResult(0))

		id := primitive.NewObjectID()
		marked, err := repo.MarkSMSSent(ctx, id, time.Now())
		require.NoError(mt, err)
		assert.False(mt, marked)

		filter, update := updateSpec(mt)
		assert.Equal(mt, id, filter.Lookup("_id").ObjectID())
		assert.False(mt, filter.Lookup("smsSent").Boolean())
		assert.ElementsMatch(mt, []string{"smsSent", "smsSentAt"}, keysOf(mt, update.Lookup("$set").Document()))
	})

	mt.Run("winner sms flag is only set while unset", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB)
		mt.AddMockResponses(updateResult(1))

		marked, err := repo.MarkWinnerSMSSent(ctx, primitive.NewObjectID(), time.Now())
		require.NoError(mt, err)
		assert.True(mt, marked)

		filter, _ := updateSpec(mt)
		assert.False(mt, filter.Lookup("winnerSmsSent").Boolean())
	})

	mt.Run("reset winners drops rank and sms timestamp", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB)
		mt.AddMockResponses(updateResult(2))

		n, err := repo.ResetWinners(ctx, lotteryID)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)

		filter, update := updateSpec(mt)
		assert.Equal(mt, string(models.TicketStatusWinner), filter.Lookup("status").StringValue())
		assert.Equal(mt, string(models.TicketStatusSold), update.Lookup("$set", "status").StringValue())
		assert.False(mt, update.Lookup("$set", "winnerSmsSent").Boolean())
		assert.ElementsMatch(mt, []string{"winnerRank", "winnerSmsSentAt"}, keysOf(mt, update.Lookup("$unset").Document()))
	})

	mt.Run("assign winner only matches sold tickets", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB)
		mt.AddMockResponses(updateResult(0))

		assigned, err := repo.AssignWinner(ctx, lotteryID, 7, 1)
		require.NoError(mt, err)
		assert.False(mt, assigned)

		filter, update := updateSpec(mt)
		assert.Equal(mt, string(models.TicketStatusSold), filter.Lookup("status").StringValue())
		var set struct {
			Rank int `bson:"winnerRank"`
		}
		require.NoError(mt, bson.Unmarshal(update.Lookup("$set").Document(), &set))
		assert.Equal(mt, 1, set.Rank)
		assert.Contains(mt, keysOf(mt, update.Lookup("$unset").Document()), "winnerSmsSentAt")
	})

	mt.Run("delete of a missing ticket is not found", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, models.ErrNotFound)
	})
}
