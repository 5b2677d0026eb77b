package auth

import (
	"context"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/server/models"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionAccess Action = "access"
	ActionRemove Action = "remove"
)

// Authorizer is consulted before a handler touches the store. obj is nil
// for ActionCreate. An empty actor is anonymous.
type Authorizer interface {
	Authorize(ctx context.Context, actor string, action Action, obj *models.StoredObject) error
}

// OwnerPolicy lets anyone upload and read. Removal needs an authenticated
// actor, and the owner when the object has one.
type OwnerPolicy struct{}

func (OwnerPolicy) Authorize(ctx context.Context, actor string, action Action, obj *models.StoredObject) error {
	if action != ActionRemove {
		return nil
	}
	if actor == "" {
		return common.ErrorUnauthorized
	}
	if obj != nil && obj.Owner != "" && obj.Owner != actor {
		return common.ErrForbidden
	}
	return nil
}

type ctxKey string

const actorKey ctxKey = "actor"

// WithActor stores the authenticated actor id in ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor id, or "" for anonymous requests.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}
