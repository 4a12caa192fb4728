package game

const (
	eventTypeBaseActivated uint32 = iota + 1
	eventTypeBaseDeactivated
)

// BaseActivated is published on the game event bus when a base gains its
// first occupant.
type BaseActivated struct {
	BaseID    string
	BaseName  string
	OwnerID   string
	Occupants int
}

func (e BaseActivated) Type() uint32 { return eventTypeBaseActivated }

// BaseDeactivated is published when the last occupant leaves a base.
type BaseDeactivated struct {
	BaseID   string
	BaseName string
	OwnerID  string
}

func (e BaseDeactivated) Type() uint32 { return eventTypeBaseDeactivated }
