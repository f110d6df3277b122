package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	BuyerIDKey contextKey = "buyer_id"
)

// GetBuyerIDFromContext mendapatkan buyer ID dari context
func GetBuyerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	buyerIDVal := ctx.Value(BuyerIDKey)
	if buyerIDVal == nil {
		return uuid.Nil, false
	}

	buyerIDStr, ok := buyerIDVal.(string)
	if !ok {
		return uuid.Nil, false
	}

	buyerID, err := uuid.Parse(buyerIDStr)
	if err != nil {
		return uuid.Nil, false
	}

	return buyerID, true
}

// SetBuyerContext menambahkan buyer ID ke context
func SetBuyerContext(ctx context.Context, buyerID uuid.UUID) context.Context {
	return context.WithValue(ctx, BuyerIDKey, buyerID.String())
}
