package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error kinds returned in the "error" field of every error body
const (
	KindValidation = "validation_error"
	KindNotFound   = "not_found"
	KindConflict   = "conflict"
	KindState      = "invalid_state"
	KindInternal   = "internal_error"
)

// Generic messages that never expose internal details
const (
	ErrMsgInvalidRequest = "Invalid request body"
	ErrMsgInvalidID      = "Invalid ID format"
	ErrMsgInternal       = "Something went wrong, please try again"
)

// respondError maps a service error to its HTTP status and error body
func respondError(c *gin.Context, err error) {
	var (
		verr     *models.ValidationError
		nf       *models.NotFoundError
		conflict *models.ConflictError
		serr     *models.StateError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": KindValidation, "message": verr.Error(), "details": verr.Violations})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": KindNotFound, "message": nf.Error(), "details": gin.H{"resource": nf.Resource, "id": nf.ID}})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   KindConflict,
			"message": conflict.Error(),
			"details": gin.H{"reason": conflict.Reason, "ticketNumber": conflict.TicketNumber, "retryable": conflict.Retryable},
		})
	case errors.As(err, &serr):
		c.JSON(http.StatusConflict, gin.H{"error": KindState, "message": serr.Message, "details": gin.H{"reason": serr.Reason}})
	default:
		logger.FromContext(c.Request.Context()).Error("Request failed", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": KindInternal, "message": ErrMsgInternal})
	}
}

// respondBindError reports a malformed or invalid request body
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   KindValidation,
		"message": ErrMsgInvalidRequest,
		"details": FormatValidationError(err),
	})
}

// objectIDParam parses a path parameter, writing a 400 when it is malformed
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": KindValidation, "message": ErrMsgInvalidID, "details": gin.H{name: c.Param(name)}})
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalObjectIDQuery parses an optional query parameter
func optionalObjectIDQuery(c *gin.Context, name string) (*primitive.ObjectID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": KindValidation, "message": ErrMsgInvalidID, "details": gin.H{name: raw}})
		return nil, false
	}
	return &id, true
}
