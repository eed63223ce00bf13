package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamu-dev/chamu/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Locations   *LocationsRepository
	Countries   *CountriesRepository
	Criteria    *CriteriaRepository
	Users       *UsersRepository
	Scores      *ScoresRepository
	Evaluations *EvaluationsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Locations:   &LocationsRepository{pool: pool},
		Countries:   &CountriesRepository{pool: pool},
		Criteria:    &CriteriaRepository{pool: pool},
		Users:       &UsersRepository{pool: pool},
		Scores:      &ScoresRepository{pool: pool},
		Evaluations: &EvaluationsRepository{pool: pool},
	}
}
