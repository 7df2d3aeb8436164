package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/atvirokodosprendimai/castingapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
	"gorm.io/gorm"
)

type MovieRepository struct {
	db *gormsqlite.DB
}

func NewMovieRepository(db *gormsqlite.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

func (r *MovieRepository) List(ctx context.Context, offset, limit int) ([]domain.Movie, int64, error) {
	var (
		models []movieModel
		total  int64
	)
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&movieModel{}).Count(&total).Error; err != nil {
			return fmt.Errorf("count movies: %w", err)
		}
		if err := tx.Order("id ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
			return fmt.Errorf("list movies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	movies := make([]domain.Movie, 0, len(models))
	for _, model := range models {
		movie, err := toMovieDomain(model)
		if err != nil {
			return nil, 0, err
		}
		movies = append(movies, movie)
	}
	return movies, total, nil
}

func (r *MovieRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	var movie domain.Movie
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		var err error
		movie, err = loadMovie(tx, id)
		return err
	})
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

func (r *MovieRepository) Create(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	model := movieModel{
		Title:       movie.Title,
		ReleaseDate: formatReleaseDate(movie.ReleaseDate),
	}
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Movie{}, fmt.Errorf("create movie: %w", err)
	}

	created, err := toMovieDomain(model)
	if err != nil {
		return domain.Movie{}, err
	}
	created.Actors = []domain.Actor{}
	return created, nil
}

// Update mirrors ActorRepository.Update with the sides swapped.
func (r *MovieRepository) Update(ctx context.Context, id int64, patch domain.MoviePatch) (domain.Movie, error) {
	var updated domain.Movie
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model movieModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load movie: %w", err)
		}

		if patch.Title != nil {
			model.Title = *patch.Title
		}
		if patch.ReleaseDate != nil {
			model.ReleaseDate = formatReleaseDate(*patch.ReleaseDate)
		}
		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("update movie: %w", err)
		}

		if patch.ActorIDs != nil {
			resolved, err := resolveIDs(tx, actorModel{}.TableName(), *patch.ActorIDs)
			if err != nil {
				return err
			}
			if len(resolved) == 0 {
				return domain.ErrNoLinkedEntities
			}
			if err := tx.Where("movie_id = ?", id).Delete(&movieActorModel{}).Error; err != nil {
				return fmt.Errorf("clear movie joins: %w", err)
			}
			joins := make([]movieActorModel, 0, len(resolved))
			for _, actorID := range resolved {
				joins = append(joins, movieActorModel{ActorID: actorID, MovieID: id})
			}
			if err := tx.Create(&joins).Error; err != nil {
				return fmt.Errorf("insert movie joins: %w", err)
			}
		}

		var err error
		updated, err = loadMovie(tx, id)
		return err
	})
	if err != nil {
		return domain.Movie{}, err
	}
	return updated, nil
}

func (r *MovieRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model movieModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load movie: %w", err)
		}
		if err := tx.Where("movie_id = ?", id).Delete(&movieActorModel{}).Error; err != nil {
			return fmt.Errorf("delete movie joins: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&movieModel{}).Error; err != nil {
			return fmt.Errorf("delete movie: %w", err)
		}
		return nil
	})
}
