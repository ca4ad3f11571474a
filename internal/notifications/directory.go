package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/repository"
)

// Identity is the display information of an actor.
type Identity struct {
	DisplayName string
	Email       string
}

// IdentityResolver looks up display information for an actor.
type IdentityResolver interface {
	Resolve(ctx context.Context, actor models.ActorRef) (Identity, error)
}

// DirectoryResolver resolves identities from the actor directory.
type DirectoryResolver struct {
	actors repository.ActorRepository
}

// NewDirectoryResolver creates an IdentityResolver over the actor table
func NewDirectoryResolver(actors repository.ActorRepository) *DirectoryResolver {
	return &DirectoryResolver{actors: actors}
}

// Resolve returns the actor's name and email. Unknown actors resolve to
// their id with no email.
func (r *DirectoryResolver) Resolve(ctx context.Context, actor models.ActorRef) (Identity, error) {
	a, err := r.actors.FindByIDAndRole(ctx, actor.ID, actor.Role)
	if errors.Is(err, repository.ErrNotFound) {
		return Identity{DisplayName: actor.ID}, nil
	}
	if err != nil {
		return Identity{}, fmt.Errorf("resolve %s: %w", actor.ID, err)
	}
	name := a.DisplayName
	if name == "" {
		name = actor.ID
	}
	return Identity{DisplayName: name, Email: a.Email}, nil
}
