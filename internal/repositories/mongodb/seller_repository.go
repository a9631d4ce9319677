package mongodb

import (
	"context"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure SellerRepository implements the interface
var _ repositories.SellerRepository = (*SellerRepository)(nil)

// SellerRepository reads staff and agent accounts
type SellerRepository struct {
	collection *mongo.Collection
}

// NewSellerRepository creates a new SellerRepository
func NewSellerRepository(db *mongo.Database) *SellerRepository {
	return &SellerRepository{
		collection: db.Collection(SellersCollection),
	}
}

// FindByID finds a seller by ID
func (r *SellerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Seller, error) {
	var seller models.Seller
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&seller)
	if err != nil {
		return nil, notFound(err, "seller", id)
	}
	return &seller, nil
}

// FindByIDs finds the sellers with the given IDs; deleted sellers are simply absent
func (r *SellerRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Seller, error) {
	if len(ids) == 0 {
		return []*models.Seller{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sellers []*models.Seller
	if err := cursor.All(ctx, &sellers); err != nil {
		return nil, err
	}
	if sellers == nil {
		sellers = []*models.Seller{}
	}
	return sellers, nil
}
