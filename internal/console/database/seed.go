package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/outpost-game/outpost/internal/console/auth"
)

// Seed inserts a development account used by local test clients.
func Seed(queries *Queries) error {
	pwd, _ := auth.NewPassword("test")
	_, err := queries.CreateUser(context.TODO(), CreateUserParams{
		ID:       uuid.NewString(),
		Name:     "scout",
		Password: pwd.String(),
	})
	return err
}
