package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure CustomerRepository implements the interface
var _ repositories.CustomerRepository = (*CustomerRepository)(nil)

// CustomerRepository handles MongoDB operations for Customer
type CustomerRepository struct {
	collection *mongo.Collection
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{
		collection: db.Collection(CustomersCollection),
	}
}

// UpsertByPhone returns the customer with phone, creating it if absent.
// An existing customer keeps its stored name.
func (r *CustomerRepository) UpsertByPhone(ctx context.Context, name, phone string) (*models.Customer, error) {
	now := time.Now()
	filter := bson.M{"phone": phone}
	update := bson.M{
		"$setOnInsert": bson.M{"name": name, "phone": phone, "createdAt": now},
		"$set":         bson.M{"updatedAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var customer models.Customer
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&customer)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// Two concurrent upserts raced on the unique phone index; the loser
		// retries and now matches the winner's document.
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&customer)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByPhone finds a customer by phone
func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := r.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&customer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &models.NotFoundError{Resource: "customer", ID: phone}
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
