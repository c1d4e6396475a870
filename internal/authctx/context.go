package authctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Actor identifies the authenticated user driving a request. Scheduler
// jobs and seed code run without an actor.
type Actor struct {
	UserID   snowflake.ID
	Username string
	Role     string
}

type actorKey struct{}

// WithActor stores the authenticated actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
