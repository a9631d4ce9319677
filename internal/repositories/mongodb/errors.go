package mongodb

import (
	"errors"
	"fmt"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// notFound converts mongo.ErrNoDocuments into a typed NotFoundError
func notFound(err error, resource string, id primitive.ObjectID) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.NotFoundError{Resource: resource, ID: id.Hex()}
	}
	return err
}

// duplicate tags unique index violations with models.ErrDuplicate
func duplicate(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", models.ErrDuplicate, err)
	}
	return err
}
