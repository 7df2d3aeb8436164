package ports

import (
	"context"

	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
)

// ActorRepository persists actors and their movie associations. List returns
// one page plus the unpaginated total. Update applies the patch atomically,
// including association replacement, or not at all.
type ActorRepository interface {
	List(ctx context.Context, offset, limit int) ([]domain.Actor, int64, error)
	GetByID(ctx context.Context, id int64) (domain.Actor, error)
	Create(ctx context.Context, actor domain.Actor) (domain.Actor, error)
	Update(ctx context.Context, id int64, patch domain.ActorPatch) (domain.Actor, error)
	Delete(ctx context.Context, id int64) error
}

type MovieRepository interface {
	List(ctx context.Context, offset, limit int) ([]domain.Movie, int64, error)
	GetByID(ctx context.Context, id int64) (domain.Movie, error)
	Create(ctx context.Context, movie domain.Movie) (domain.Movie, error)
	Update(ctx context.Context, id int64, patch domain.MoviePatch) (domain.Movie, error)
	Delete(ctx context.Context, id int64) error
}
