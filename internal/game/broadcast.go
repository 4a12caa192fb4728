package game

import (
	"context"
	"sort"

	"github.com/outpost-game/outpost/internal/wire"
)

// broadcast pushes the per-player balance and the shared active-base list to
// every connected client. Balances come from the session cache so the tick
// never touches the gateway.
func (g *Game) broadcast(ctx context.Context) {
	sessions := g.Snapshot()

	for _, session := range sessions {
		if !session.Bound() {
			continue
		}
		session.SendMessage(ctx, wire.CmdUpdateUser, wire.UpdateUserParams{
			Money:  session.CachedMoney,
			Income: session.IncomeThisTick,
		})
	}

	statuses := make([]wire.BaseStatus, 0, len(g.active))
	for id, active := range g.active {
		seen := make(map[string]struct{}, len(active.occupants))
		userIDs := make([]string, 0, len(active.occupants))
		for _, occupant := range active.occupants {
			if _, dup := seen[occupant.UserID]; dup {
				continue
			}
			seen[occupant.UserID] = struct{}{}
			userIDs = append(userIDs, occupant.UserID)
		}
		sort.Strings(userIDs)
		statuses = append(statuses, wire.BaseStatus{
			ID:          id,
			ActiveUsers: userIDs,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })

	payload := wire.Compose(wire.CmdUpdateBases, statuses)
	for _, session := range sessions {
		session.Send(ctx, payload)
	}
}
