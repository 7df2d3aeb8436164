package usecase

import (
	"context"
	"fmt"

	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
	"github.com/atvirokodosprendimai/castingapi/internal/core/ports"
)

type MovieService struct {
	repo ports.MovieRepository
}

func NewMovieService(repo ports.MovieRepository) *MovieService {
	return &MovieService{repo: repo}
}

func (s *MovieService) List(ctx context.Context, page int) ([]domain.Movie, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PageSize

	movies, total, err := s.repo.List(ctx, offset, PageSize)
	if err != nil {
		return nil, 0, err
	}
	if offset > 0 && int64(offset) >= total {
		return nil, 0, domain.ErrNotFound
	}
	return movies, total, nil
}

func (s *MovieService) Get(ctx context.Context, id int64) (domain.Movie, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MovieService) Create(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	if err := movie.Validate(); err != nil {
		return domain.Movie{}, err
	}
	return s.repo.Create(ctx, movie)
}

func (s *MovieService) Update(ctx context.Context, id int64, patch domain.MoviePatch) (domain.Movie, error) {
	if patch.Title != nil && *patch.Title == "" {
		return domain.Movie{}, fmt.Errorf("%w: title must not be empty", domain.ErrInvalidInput)
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *MovieService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
