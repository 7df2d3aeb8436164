package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/atvirokodosprendimai/castingapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
	"gorm.io/gorm"
)

type ActorRepository struct {
	db *gormsqlite.DB
}

func NewActorRepository(db *gormsqlite.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

func (r *ActorRepository) List(ctx context.Context, offset, limit int) ([]domain.Actor, int64, error) {
	var (
		models []actorModel
		total  int64
	)
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&actorModel{}).Count(&total).Error; err != nil {
			return fmt.Errorf("count actors: %w", err)
		}
		if err := tx.Order("id ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
			return fmt.Errorf("list actors: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	actors := make([]domain.Actor, 0, len(models))
	for _, model := range models {
		actors = append(actors, toActorDomain(model))
	}
	return actors, total, nil
}

func (r *ActorRepository) GetByID(ctx context.Context, id int64) (domain.Actor, error) {
	var actor domain.Actor
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		var err error
		actor, err = loadActor(tx, id)
		return err
	})
	if err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}

func (r *ActorRepository) Create(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	model := actorModel{
		Name:   actor.Name,
		Age:    actor.Age,
		Gender: string(actor.Gender),
	}
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Actor{}, fmt.Errorf("create actor: %w", err)
	}

	created := toActorDomain(model)
	created.Movies = []domain.Movie{}
	return created, nil
}

// Update applies the patch inside one transaction. When the patch carries a
// movie-id list, the actor's join rows are replaced with the resolved set;
// if nothing resolves the transaction rolls back and no field change
// survives.
func (r *ActorRepository) Update(ctx context.Context, id int64, patch domain.ActorPatch) (domain.Actor, error) {
	var updated domain.Actor
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model actorModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load actor: %w", err)
		}

		if patch.Name != nil {
			model.Name = *patch.Name
		}
		if patch.Age != nil {
			model.Age = *patch.Age
		}
		if patch.Gender != nil {
			model.Gender = string(*patch.Gender)
		}
		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("update actor: %w", err)
		}

		if patch.MovieIDs != nil {
			resolved, err := resolveIDs(tx, movieModel{}.TableName(), *patch.MovieIDs)
			if err != nil {
				return err
			}
			if len(resolved) == 0 {
				return domain.ErrNoLinkedEntities
			}
			if err := tx.Where("actor_id = ?", id).Delete(&movieActorModel{}).Error; err != nil {
				return fmt.Errorf("clear actor joins: %w", err)
			}
			joins := make([]movieActorModel, 0, len(resolved))
			for _, movieID := range resolved {
				joins = append(joins, movieActorModel{ActorID: id, MovieID: movieID})
			}
			if err := tx.Create(&joins).Error; err != nil {
				return fmt.Errorf("insert actor joins: %w", err)
			}
		}

		var err error
		updated, err = loadActor(tx, id)
		return err
	})
	if err != nil {
		return domain.Actor{}, err
	}
	return updated, nil
}

// Delete removes the actor and only its own join rows. Linked movies are
// never touched.
func (r *ActorRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model actorModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load actor: %w", err)
		}
		if err := tx.Where("actor_id = ?", id).Delete(&movieActorModel{}).Error; err != nil {
			return fmt.Errorf("delete actor joins: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&actorModel{}).Error; err != nil {
			return fmt.Errorf("delete actor: %w", err)
		}
		return nil
	})
}
