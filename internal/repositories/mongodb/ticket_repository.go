package mongodb

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure TicketRepository implements the interface
var _ repositories.TicketRepository = (*TicketRepository)(nil)

// TicketRepository handles MongoDB operations for Ticket
type TicketRepository struct {
	collection *mongo.Collection
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{
		collection: db.Collection(TicketsCollection),
	}
}

// Insert creates a ticket. A second ticket for the same (lotteryId,
// ticketNumber) is rejected by the unique index with models.ErrDuplicate.
func (r *TicketRepository) Insert(ctx context.Context, ticket *models.Ticket) error {
	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, ticket); err != nil {
		return duplicate(err)
	}
	return nil
}

// FindByID finds a ticket by ID
func (r *TicketRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		return nil, notFound(err, "ticket", id)
	}
	return &ticket, nil
}

// FindByNumbers finds the tickets of a lottery with the given numbers
func (r *TicketRepository) FindByNumbers(ctx context.Context, lotteryID primitive.ObjectID, numbers []int) ([]*models.Ticket, error) {
	filter := bson.M{"lotteryId": lotteryID, "ticketNumber": bson.M{"$in": numbers}}
	return r.find(ctx, filter, options.Find().SetSort(bson.M{"ticketNumber": 1}))
}

// FindByLottery lists every ticket of a lottery by number
func (r *TicketRepository) FindByLottery(ctx context.Context, lotteryID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"lotteryId": lotteryID}, options.Find().SetSort(bson.M{"ticketNumber": 1}))
}

// SoldNumbers streams sold ticket numbers from a cursor
func (r *TicketRepository) SoldNumbers(ctx context.Context, lotteryID primitive.ObjectID) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		opts := options.Find().
			SetProjection(bson.M{"ticketNumber": 1, "_id": 0}).
			SetSort(bson.M{"ticketNumber": 1})
		cursor, err := r.collection.Find(ctx, bson.M{"lotteryId": lotteryID}, opts)
		if err != nil {
			yield(0, err)
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc struct {
				TicketNumber int `bson:"ticketNumber"`
			}
			if err := cursor.Decode(&doc); err != nil {
				yield(0, err)
				return
			}
			if !yield(doc.TicketNumber, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			yield(0, err)
		}
	}
}

// CountByLottery counts sold tickets of a lottery
func (r *TicketRepository) CountByLottery(ctx context.Context, lotteryID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"lotteryId": lotteryID})
}

// MaxTicketNumber returns the highest sold number of a lottery, or 0
func (r *TicketRepository) MaxTicketNumber(ctx context.Context, lotteryID primitive.ObjectID) (int, error) {
	opts := options.FindOne().
		SetSort(bson.M{"ticketNumber": -1}).
		SetProjection(bson.M{"ticketNumber": 1})
	var doc struct {
		TicketNumber int `bson:"ticketNumber"`
	}
	err := r.collection.FindOne(ctx, bson.M{"lotteryId": lotteryID}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.TicketNumber, nil
}

// FindSoldBetween lists tickets sold in [from, to)
func (r *TicketRepository) FindSoldBetween(ctx context.Context, from, to time.Time) ([]*models.Ticket, error) {
	filter := bson.M{"soldAt": bson.M{"$gte": from, "$lt": to}}
	return r.find(ctx, filter, options.Find().SetSort(bson.M{"soldAt": 1}))
}

// FindWinners lists winning tickets ordered by lottery and rank
func (r *TicketRepository) FindWinners(ctx context.Context, lotteryID *primitive.ObjectID) ([]*models.Ticket, error) {
	filter := bson.M{"status": models.TicketStatusWinner}
	if lotteryID != nil {
		filter["lotteryId"] = *lotteryID
	}
	opts := options.Find().SetSort(bson.D{{Key: "lotteryId", Value: 1}, {Key: "winnerRank", Value: 1}})
	return r.find(ctx, filter, opts)
}

// FindPendingSaleSMS lists tickets whose sale confirmation was not acknowledged
func (r *TicketRepository) FindPendingSaleSMS(ctx context.Context, lotteryID *primitive.ObjectID) ([]*models.Ticket, error) {
	filter := bson.M{"smsSent": false}
	if lotteryID != nil {
		filter["lotteryId"] = *lotteryID
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.M{"soldAt": 1}))
}

// FindPendingResultSMS lists tickets of the given lotteries awaiting the result announcement
func (r *TicketRepository) FindPendingResultSMS(ctx context.Context, lotteryIDs []primitive.ObjectID) ([]*models.Ticket, error) {
	if len(lotteryIDs) == 0 {
		return []*models.Ticket{}, nil
	}
	filter := bson.M{
		"lotteryId":     bson.M{"$in": lotteryIDs},
		"winnerSmsSent": false,
	}
	opts := options.Find().SetSort(bson.D{{Key: "lotteryId", Value: 1}, {Key: "ticketNumber", Value: 1}})
	return r.find(ctx, filter, opts)
}

// ResetWinners turns every winner of the lottery back into a sold ticket
func (r *TicketRepository) ResetWinners(ctx context.Context, lotteryID primitive.ObjectID) (int64, error) {
	filter := bson.M{"lotteryId": lotteryID, "status": models.TicketStatusWinner}
	update := bson.M{
		"$set":   bson.M{"status": models.TicketStatusSold, "winnerSmsSent": false},
		"$unset": bson.M{"winnerRank": "", "winnerSmsSentAt": ""},
	}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// AssignWinner marks a sold ticket as the winner of rank. Any earlier result
// notice no longer applies, so the winner SMS flag is cleared.
func (r *TicketRepository) AssignWinner(ctx context.Context, lotteryID primitive.ObjectID, ticketNumber, rank int) (bool, error) {
	filter := bson.M{
		"lotteryId":    lotteryID,
		"ticketNumber": ticketNumber,
		"status":       models.TicketStatusSold,
	}
	update := bson.M{
		"$set":   bson.M{"status": models.TicketStatusWinner, "winnerRank": rank, "winnerSmsSent": false},
		"$unset": bson.M{"winnerSmsSentAt": ""},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// MarkSMSSent sets smsSent only if it is still false, so the first timestamp wins
func (r *TicketRepository) MarkSMSSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	return r.markOnce(ctx, id, "smsSent", "smsSentAt", at)
}

// MarkWinnerSMSSent sets winnerSmsSent only if it is still false
func (r *TicketRepository) MarkWinnerSMSSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	return r.markOnce(ctx, id, "winnerSmsSent", "winnerSmsSentAt", at)
}

func (r *TicketRepository) markOnce(ctx context.Context, id primitive.ObjectID, flag, stamp string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, flag: false}
	update := bson.M{"$set": bson.M{flag: true, stamp: at}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// Delete removes a ticket by ID
func (r *TicketRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return &models.NotFoundError{Resource: "ticket", ID: id.Hex()}
	}
	return nil
}

func (r *TicketRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Ticket, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute find query: %w", err)
	}
	defer cursor.Close(ctx)

	var tickets []*models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return tickets, nil
}
