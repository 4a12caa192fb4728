// Package model defines the persisted entities shared by the REST API and the
// game loop.
package model

import (
	"errors"
	"time"

	"github.com/outpost-game/outpost/internal/geo"
)

// ErrNotFound is returned by the query layer when a row does not exist.
var ErrNotFound = errors.New("not found")

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	Money     float64   `json:"money"`
	CreatedAt time.Time `json:"createdAt"`
}

type Base struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Location  geo.Point `json:"location"`
	CreatedAt time.Time `json:"createdAt"`

	// Owner is filled in by handlers that expand the relation.
	Owner *User `json:"owner,omitempty"`
}

type Investment struct {
	ID         string    `json:"id"`
	BaseID     string    `json:"baseId"`
	InvestorID string    `json:"investorId"`
	CreatedAt  time.Time `json:"createdAt"`

	Investor *User `json:"investor,omitempty"`
}
