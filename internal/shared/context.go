package shared

import (
	"context"

	"github.com/google/uuid"
)

// Actor identifies the authenticated user and the tenant every operation is
// scoped to. All domain queries filter by ClientID; cross-tenant references
// are rejected at the service layer as well.
type Actor struct {
	UserID      int64
	ClientID    uuid.UUID
	Email       string
	Permissions []string
}

// Can reports whether the actor holds the given permission.
func (a Actor) Can(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
