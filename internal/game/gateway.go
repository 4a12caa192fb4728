package game

import (
	"context"

	"github.com/outpost-game/outpost/internal/model"
)

// Gateway is the persistence contract consumed by the game loop. It is
// implemented by the database query layer. Gateway calls are the only
// operations of the loop that may block.
//
// AddToUserMoney must be atomic: a single increment of the stored balance
// returning the new amount, so that concurrent balance mutations never lose
// an update.
type Gateway interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
	AddToUserMoney(ctx context.Context, id string, delta float64) (float64, error)
	ListBases(ctx context.Context) ([]model.Base, error)
	CountBaseInvestments(ctx context.Context, baseID string) (int64, error)
}
