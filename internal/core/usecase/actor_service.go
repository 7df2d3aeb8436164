package usecase

import (
	"context"
	"fmt"

	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
	"github.com/atvirokodosprendimai/castingapi/internal/core/ports"
)

// PageSize is the fixed number of entities per list page.
const PageSize = 10

type ActorService struct {
	repo ports.ActorRepository
}

func NewActorService(repo ports.ActorRepository) *ActorService {
	return &ActorService{repo: repo}
}

// List returns one page of actors plus the unpaginated total. A page whose
// start offset lies at or past a non-zero total does not exist.
func (s *ActorService) List(ctx context.Context, page int) ([]domain.Actor, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PageSize

	actors, total, err := s.repo.List(ctx, offset, PageSize)
	if err != nil {
		return nil, 0, err
	}
	if offset > 0 && int64(offset) >= total {
		return nil, 0, domain.ErrNotFound
	}
	return actors, total, nil
}

func (s *ActorService) Get(ctx context.Context, id int64) (domain.Actor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ActorService) Create(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	if err := actor.Validate(); err != nil {
		return domain.Actor{}, err
	}
	return s.repo.Create(ctx, actor)
}

func (s *ActorService) Update(ctx context.Context, id int64, patch domain.ActorPatch) (domain.Actor, error) {
	if patch.Name != nil && *patch.Name == "" {
		return domain.Actor{}, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
	}
	if patch.Gender != nil && !patch.Gender.Valid() {
		return domain.Actor{}, fmt.Errorf("%w: gender must be M or F", domain.ErrInvalidInput)
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *ActorService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
