package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure LotteryRepository implements the interface
var _ repositories.LotteryRepository = (*LotteryRepository)(nil)

// LotteryRepository handles MongoDB operations for Lottery
type LotteryRepository struct {
	collection *mongo.Collection
}

// NewLotteryRepository creates a new LotteryRepository
func NewLotteryRepository(db *mongo.Database) *LotteryRepository {
	return &LotteryRepository{
		collection: db.Collection(LotteriesCollection),
	}
}

// Create inserts a new lottery
func (r *LotteryRepository) Create(ctx context.Context, lottery *models.Lottery) error {
	now := time.Now()
	lottery.ID = primitive.NewObjectID()
	lottery.CreatedAt = now
	lottery.UpdatedAt = now
	if _, err := r.collection.InsertOne(ctx, lottery); err != nil {
		return duplicate(err)
	}
	return nil
}

// FindByID finds a lottery by ID
func (r *LotteryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error) {
	var lottery models.Lottery
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&lottery)
	if err != nil {
		return nil, notFound(err, "lottery", id)
	}
	return &lottery, nil
}

// FindByIDs finds the lotteries with the given IDs; unknown IDs are skipped
func (r *LotteryRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Lottery, error) {
	if len(ids) == 0 {
		return []*models.Lottery{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

// FindAll lists lotteries newest first, optionally filtered by status
func (r *LotteryRepository) FindAll(ctx context.Context, status models.LotteryStatus) ([]*models.Lottery, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": -1}))
}

// FindResolved lists ended lotteries that have winners
func (r *LotteryRepository) FindResolved(ctx context.Context) ([]*models.Lottery, error) {
	filter := bson.M{
		"status":                models.LotteryStatusEnded,
		"winningTicketNumber.0": bson.M{"$exists": true},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.M{"resolvedAt": -1}))
}

func (r *LotteryRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Lottery, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute find query: %w", err)
	}
	defer cursor.Close(ctx)

	var lotteries []*models.Lottery
	if err := cursor.All(ctx, &lotteries); err != nil {
		return nil, fmt.Errorf("failed to decode lotteries: %w", err)
	}
	if lotteries == nil {
		lotteries = []*models.Lottery{}
	}
	return lotteries, nil
}

// MarkEnded moves an active lottery to ended
func (r *LotteryRepository) MarkEnded(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.LotteryStatusActive}
	update := bson.M{"$set": bson.M{
		"status":    models.LotteryStatusEnded,
		"endedAt":   at,
		"updatedAt": at,
	}}
	return r.updateOne(ctx, filter, update)
}

// UpdateTicketCount changes the ticket count while the lottery is active
func (r *LotteryRepository) UpdateTicketCount(ctx context.Context, id primitive.ObjectID, ticketCount int) (bool, error) {
	filter := bson.M{"_id": id, "status": models.LotteryStatusActive}
	update := bson.M{"$set": bson.M{
		"ticketCount": ticketCount,
		"updatedAt":   time.Now(),
	}}
	return r.updateOne(ctx, filter, update)
}

// SetWinners stores the winning numbers of an ended lottery
func (r *LotteryRepository) SetWinners(ctx context.Context, id primitive.ObjectID, winningNumbers []int, streamLink string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.LotteryStatusEnded}
	update := bson.M{"$set": bson.M{
		"winningTicketNumber": winningNumbers,
		"tiktokStreamLink":    streamLink,
		"resolvedAt":          at,
		"updatedAt":           at,
	}}
	return r.updateOne(ctx, filter, update)
}

// ClaimForSale touches an active lottery whose range covers ticketNumber
func (r *LotteryRepository) ClaimForSale(ctx context.Context, id primitive.ObjectID, ticketNumber int, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":         id,
		"status":      models.LotteryStatusActive,
		"ticketCount": bson.M{"$gte": ticketNumber},
	}
	return r.updateOne(ctx, filter, bson.M{"$set": bson.M{"updatedAt": at}})
}

// GuardUnresolved touches a lottery that has no winning numbers yet
func (r *LotteryRepository) GuardUnresolved(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":                   id,
		"winningTicketNumber.0": bson.M{"$exists": false},
	}
	return r.updateOne(ctx, filter, bson.M{"$set": bson.M{"updatedAt": at}})
}

func (r *LotteryRepository) updateOne(ctx context.Context, filter, update bson.M) (bool, error) {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}
