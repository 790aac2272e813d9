// Package actorctx carries the authenticated caller on a context.Context so
// code below the HTTP layer can log and attribute work without gin.
package actorctx

import (
	"context"

	"github.com/geocoder89/eduai/internal/domain/user"
)

type ctxKey struct{}

func WithUser(ctx context.Context, u user.Public) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (user.Public, bool) {
	u, ok := ctx.Value(ctxKey{}).(user.Public)
	return u, ok && u.ID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	u, ok := UserFrom(ctx)
	return u.ID, ok
}
