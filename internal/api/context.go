package api

import (
	"context"

	"github.com/google/uuid"
)

func contextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

func userIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(userIDContextKey{}).(uuid.UUID)
	return v, ok
}
