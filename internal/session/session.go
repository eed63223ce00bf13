// Package session holds a user's priority ranking between the ranking step
// and the results step. State is transient: any key-value backend with a TTL
// satisfies the contract.
package session

import (
	"context"
	"errors"

	"github.com/chamu-dev/chamu/internal/domain"
)

// ErrNotFound indicates no ranking is stored for the token (never set, or
// already expired).
var ErrNotFound = errors.New("session: not found")

// Store persists preference rankings keyed by an opaque session token.
type Store interface {
	SaveRanking(ctx context.Context, token string, ranking domain.PreferenceRanking) error
	Ranking(ctx context.Context, token string) (domain.PreferenceRanking, error)
	Clear(ctx context.Context, token string) error
}
