package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	LotteriesCollection = "lotteries"
	TicketsCollection   = "tickets"
	CustomersCollection = "customers"
	SellersCollection   = "sellers"
)

// EnsureIndexes creates the indexes the service relies on. The unique
// (lotteryId, ticketNumber) index is what prevents double sales.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		TicketsCollection: {
			{
				Keys:    bson.D{{Key: "lotteryId", Value: 1}, {Key: "ticketNumber", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("lottery_ticket_number_unique"),
			},
			{
				Keys:    bson.D{{Key: "soldAt", Value: -1}},
				Options: options.Index().SetName("sold_at"),
			},
			{
				Keys:    bson.D{{Key: "lotteryId", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("lottery_status"),
			},
			{
				Keys:    bson.D{{Key: "smsSent", Value: 1}, {Key: "soldAt", Value: 1}},
				Options: options.Index().SetName("pending_sale_sms"),
			},
		},
		CustomersCollection: {
			{
				Keys:    bson.D{{Key: "phone", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("phone_unique"),
			},
		},
		LotteriesCollection: {
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("status_created"),
			},
		},
	}

	for collection, models := range specs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
