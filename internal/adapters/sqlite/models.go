package sqlite

import (
	"errors"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/castingapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type actorModel struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name   string `gorm:"column:name;not null"`
	Age    int    `gorm:"column:age;not null"`
	Gender string `gorm:"column:gender;not null"`
}

func (actorModel) TableName() string {
	return "actors"
}

type movieModel struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string `gorm:"column:title;not null"`
	ReleaseDate string `gorm:"column:release_date;not null"`
}

func (movieModel) TableName() string {
	return "movies"
}

type movieActorModel struct {
	ActorID int64 `gorm:"column:actor_id;primaryKey"`
	MovieID int64 `gorm:"column:movie_id;primaryKey"`
}

func (movieActorModel) TableName() string {
	return "movie_actors"
}

func toActorDomain(model actorModel) domain.Actor {
	return domain.Actor{
		ID:     model.ID,
		Name:   model.Name,
		Age:    model.Age,
		Gender: domain.Gender(model.Gender),
	}
}

func toMovieDomain(model movieModel) (domain.Movie, error) {
	released, err := time.Parse(dateLayout, model.ReleaseDate)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("parse release date of movie %d: %w", model.ID, err)
	}
	return domain.Movie{
		ID:          model.ID,
		Title:       model.Title,
		ReleaseDate: released,
	}, nil
}

func formatReleaseDate(t time.Time) string {
	return t.Format(dateLayout)
}

// loadActor fetches one actor together with its full movie list.
func loadActor(tx *gormsqlite.Tx, id int64) (domain.Actor, error) {
	var model actorModel
	if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Actor{}, domain.ErrNotFound
		}
		return domain.Actor{}, fmt.Errorf("load actor: %w", err)
	}

	var joins []movieActorModel
	if err := tx.Where("actor_id = ?", id).Find(&joins).Error; err != nil {
		return domain.Actor{}, fmt.Errorf("load actor joins: %w", err)
	}

	actor := toActorDomain(model)
	actor.Movies = make([]domain.Movie, 0, len(joins))
	if len(joins) == 0 {
		return actor, nil
	}

	movieIDs := make([]int64, 0, len(joins))
	for _, j := range joins {
		movieIDs = append(movieIDs, j.MovieID)
	}

	var movies []movieModel
	if err := tx.Where("id IN ?", movieIDs).Order("id ASC").Find(&movies).Error; err != nil {
		return domain.Actor{}, fmt.Errorf("load linked movies: %w", err)
	}
	for _, m := range movies {
		movie, err := toMovieDomain(m)
		if err != nil {
			return domain.Actor{}, err
		}
		actor.Movies = append(actor.Movies, movie)
	}
	return actor, nil
}

// loadMovie fetches one movie together with its full actor list.
func loadMovie(tx *gormsqlite.Tx, id int64) (domain.Movie, error) {
	var model movieModel
	if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Movie{}, domain.ErrNotFound
		}
		return domain.Movie{}, fmt.Errorf("load movie: %w", err)
	}

	movie, err := toMovieDomain(model)
	if err != nil {
		return domain.Movie{}, err
	}

	var joins []movieActorModel
	if err := tx.Where("movie_id = ?", id).Find(&joins).Error; err != nil {
		return domain.Movie{}, fmt.Errorf("load movie joins: %w", err)
	}

	movie.Actors = make([]domain.Actor, 0, len(joins))
	if len(joins) == 0 {
		return movie, nil
	}

	actorIDs := make([]int64, 0, len(joins))
	for _, j := range joins {
		actorIDs = append(actorIDs, j.ActorID)
	}

	var actors []actorModel
	if err := tx.Where("id IN ?", actorIDs).Order("id ASC").Find(&actors).Error; err != nil {
		return domain.Movie{}, fmt.Errorf("load linked actors: %w", err)
	}
	for _, a := range actors {
		movie.Actors = append(movie.Actors, toActorDomain(a))
	}
	return movie, nil
}

// resolveIDs returns the distinct members of ids that exist in table.
// Unknown ids are dropped silently; the caller decides what an empty
// result means.
func resolveIDs(tx *gormsqlite.Tx, table string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resolved []int64
	err := tx.Table(table).Where("id IN ?", ids).Order("id ASC").Pluck("id", &resolved).Error
	if err != nil {
		return nil, fmt.Errorf("resolve ids in %s: %w", table, err)
	}
	return resolved, nil
}
