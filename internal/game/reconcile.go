package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/kelindar/event"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/geo"
	"github.com/outpost-game/outpost/internal/metrics"
	"github.com/outpost-game/outpost/internal/model"
	"github.com/outpost-game/outpost/internal/wire"
)

const errGatewayUnavailable = "Internal server error"

// activeBase is the per-episode state of a base with at least one occupant.
// It lives from the tick a base gains its first occupant until the tick it
// loses its last one.
type activeBase struct {
	base        model.Base
	occupants   []*Session
	investments int64

	// ownerNotified is set once the owner has been told about the current
	// activation episode.
	ownerNotified bool
}

// reconcile runs one proximity and income cycle. The cycle is two-phase: all
// gateway reads happen first, and any read failure aborts the tick before a
// single balance, flag or episode has been touched. Once the commit phase
// starts, a failing balance update only skips that occupant.
func (g *Game) reconcile(ctx context.Context) {
	started := time.Now()
	defer func() {
		metrics.ReconcileDuration.Observe(time.Since(started).Seconds())
	}()
	metrics.ReconcileTicks.Inc()

	// Read phase.
	bases, err := g.gateway.ListBases(ctx)
	if err != nil {
		slog.Error("Could not list bases", logging.Error(err))
		g.abortTick(ctx, "ListBases")
		return
	}

	sessions := g.Snapshot()

	next := make(map[string]*activeBase, len(bases))
	for _, base := range bases {
		var occupants []*Session
		for _, session := range sessions {
			if !session.Bound() {
				continue
			}
			if geo.Distance(session.Location, base.Location) <= g.Settings.BaseRange {
				occupants = append(occupants, session)
			}
		}
		if len(occupants) == 0 {
			continue
		}

		investments, err := g.gateway.CountBaseInvestments(ctx, base.ID)
		if err != nil {
			slog.Error("Could not count investments", logging.BaseID(base.ID), logging.Error(err))
			g.abortTick(ctx, "CountBaseInvestments")
			return
		}
		next[base.ID] = &activeBase{
			base:        base,
			occupants:   occupants,
			investments: investments,
		}
	}

	// Commit phase.
	for _, session := range sessions {
		session.IncomeThisTick = 0
	}

	for id, previous := range g.active {
		if _, stillActive := next[id]; stillActive {
			continue
		}
		delete(g.active, id)
		for _, session := range previous.occupants {
			session.Notified = false
		}
		slog.Info("Base deactivated", logging.BaseID(id), "baseName", previous.base.Name)
		event.Publish(g.Events, BaseDeactivated{
			BaseID:   id,
			BaseName: previous.base.Name,
			OwnerID:  previous.base.OwnerID,
		})
	}

	for id, current := range next {
		previous, known := g.active[id]
		if known {
			current.ownerNotified = previous.ownerNotified
		} else {
			metrics.BaseActivations.Inc()
			slog.Info("Base activated",
				logging.BaseID(id),
				"baseName", current.base.Name,
				"occupants", len(current.occupants))
			event.Publish(g.Events, BaseActivated{
				BaseID:    id,
				BaseName:  current.base.Name,
				OwnerID:   current.base.OwnerID,
				Occupants: len(current.occupants),
			})
		}
		g.active[id] = current

		g.notify(ctx, current)
		g.applyIncome(ctx, current)
	}

	metrics.ActiveBases.Set(float64(len(g.active)))
}

// notify tells every occupant about the base they entered, once per
// activation episode, and separately informs the owner that their base is
// earning. The owner is never notified while standing on their own base.
func (g *Game) notify(ctx context.Context, active *activeBase) {
	params := wire.NotificationParams{
		BaseID:   active.base.ID,
		BaseName: active.base.Name,
	}

	ownerOccupies := false
	for _, session := range active.occupants {
		if session.UserID == active.base.OwnerID {
			ownerOccupies = true
			continue
		}
		if session.Notified {
			continue
		}
		session.SendMessage(ctx, wire.CmdNotification, params)
		session.Notified = true
		metrics.NotificationsSent.Inc()
	}

	if active.ownerNotified || ownerOccupies {
		return
	}
	owner, connected := g.findSessionByUser(active.base.OwnerID)
	if !connected {
		return
	}
	owner.SendMessage(ctx, wire.CmdNotification, params)
	active.ownerNotified = true
	metrics.NotificationsSent.Inc()
}

// applyIncome credits every occupant of an active base with this tick's
// income. The per-occupant amount is the base income raised by investments,
// then scaled by a crowding bonus when more than one player occupies the
// base.
func (g *Game) applyIncome(ctx context.Context, active *activeBase) {
	income := g.Settings.BaseIncome +
		float64(active.investments)*g.Settings.IncomeIncreasePerInvestment
	if n := len(active.occupants); n > 1 {
		income *= 1 + g.Settings.IncomeMultiplierPerActiveUser*float64(n-1)
	}

	for _, session := range active.occupants {
		balance, err := g.gateway.AddToUserMoney(ctx, session.UserID, income)
		if err != nil {
			slog.Error("Could not credit income",
				logging.UserID(session.UserID),
				logging.BaseID(active.base.ID),
				logging.Error(err))
			metrics.GatewayFailures.WithLabelValues("AddToUserMoney").Inc()
			continue
		}
		// The client may have disconnected while the gateway call was in
		// flight. The balance is persisted either way; only the cached copy
		// is discarded.
		if !g.hasSession(session.ID) {
			continue
		}
		session.CachedMoney = balance
		session.IncomeThisTick += income
		metrics.IncomeApplied.Add(income)
	}
}

// abortTick abandons the current cycle after a failed gateway read. Every
// client gets a generic error; the next tick starts from scratch.
func (g *Game) abortTick(ctx context.Context, operation string) {
	metrics.ReconcileAborts.Inc()
	g.gatewayFailure(ctx, operation)
}

// gatewayFailure records a failed gateway call and tells every client that
// something went wrong, without detail.
func (g *Game) gatewayFailure(ctx context.Context, operation string) {
	metrics.GatewayFailures.WithLabelValues(operation).Inc()
	g.BroadcastMessage(ctx, wire.Compose(wire.CmdError, wire.ErrorParams{Message: errGatewayUnavailable}))
}
