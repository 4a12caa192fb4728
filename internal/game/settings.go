package game

import "time"

// Settings are the tunables of the proximity and income rules.
type Settings struct {
	// BaseRange is the radius in meters within which a player counts as
	// occupying a base. The boundary is inclusive.
	BaseRange float64

	// BaseIncome is credited per tick to every occupant of an active base
	// before investment and crowding adjustments.
	BaseIncome float64

	// IncomeIncreasePerInvestment is added to the base income for every
	// investment placed on the base.
	IncomeIncreasePerInvestment float64

	// IncomeMultiplierPerActiveUser is the linear crowding bonus applied once
	// per occupant beyond the first.
	IncomeMultiplierPerActiveUser float64

	// ReconcileInterval is the period of the proximity reconciliation loop.
	ReconcileInterval time.Duration

	// BroadcastInterval is the period of the state broadcast loop.
	BroadcastInterval time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		BaseRange:                     500,
		BaseIncome:                    10,
		IncomeIncreasePerInvestment:   2,
		IncomeMultiplierPerActiveUser: 0.1,
		ReconcileInterval:             time.Second,
		BroadcastInterval:             time.Second,
	}
}
