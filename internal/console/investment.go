package console

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/console/database"
	"github.com/outpost-game/outpost/internal/model"
)

const maxInvestmentsPerBase = 5

// handleCreateInvestment places an investment on a base for the authenticated
// user. Owners cannot invest in their own base, each investor gets one
// investment per base, a base holds at most five, and the investment price is
// deducted up front.
func (c *Console) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	baseID := chi.URLParam(r, "baseId")
	investorID := authUserID(r.Context())

	base, err := c.DB.Read.GetBaseByID(r.Context(), baseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "base not found")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not create investment")
		return
	}
	if base.OwnerID == investorID {
		renderError(w, r, http.StatusConflict, "you cannot invest in your own base")
		return
	}

	existing, err := c.DB.Read.CountInvestorInvestments(r.Context(), baseID, investorID)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not create investment")
		return
	}
	if existing > 0 {
		renderError(w, r, http.StatusConflict, "you already invested in this base")
		return
	}

	total, err := c.DB.Read.CountBaseInvestments(r.Context(), baseID)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not create investment")
		return
	}
	if total >= maxInvestmentsPerBase {
		renderError(w, r, http.StatusConflict, "this base is fully invested")
		return
	}

	tx, queries, err := c.DB.WithTx(r.Context())
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not create investment")
		return
	}

	balance, err := queries.AddToUserMoney(r.Context(), investorID, -c.Config.InitialInvestmentPrice)
	if err != nil {
		_ = tx.Rollback()
		renderError(w, r, http.StatusInternalServerError, "could not create investment")
		return
	}
	if balance < 0 {
		_ = tx.Rollback()
		renderError(w, r, http.StatusConflict, "not enough money")
		return
	}

	investment, err := queries.CreateInvestment(r.Context(), database.CreateInvestmentParams{
		ID:         uuid.NewString(),
		BaseID:     baseID,
		InvestorID: investorID,
	})
	if err != nil {
		slog.Error("Could not create investment",
			logging.BaseID(baseID),
			logging.UserID(investorID),
			logging.Error(errors.Join(err, tx.Rollback())))
		if isUniqueViolation(err) {
			renderError(w, r, http.StatusConflict, "you already invested in this base")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not create investment")
		return
	}
	if err := tx.Commit(); err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not create investment")
		return
	}

	withStatus(r, http.StatusCreated)
	renderJSON(w, r, investment)
}

func (c *Console) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	baseID := chi.URLParam(r, "baseId")

	if _, err := c.DB.Read.GetBaseByID(r.Context(), baseID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "base not found")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not list investments")
		return
	}

	investments, err := c.DB.Read.ListBaseInvestments(r.Context(), baseID)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not list investments")
		return
	}
	c.embedInvestors(r, investments)
	renderJSON(w, r, investments)
}

func (c *Console) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
	investment, err := c.DB.Read.GetInvestmentByID(r.Context(),
		chi.URLParam(r, "baseId"), chi.URLParam(r, "investmentId"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "investment not found")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not fetch investment")
		return
	}

	investments := []model.Investment{investment}
	c.embedInvestors(r, investments)
	renderJSON(w, r, investments[0])
}

// handleDeleteInvestment withdraws an investment. Only the investor can do it,
// and the price is not refunded.
func (c *Console) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	investment, err := c.DB.Read.GetInvestmentByID(r.Context(),
		chi.URLParam(r, "baseId"), chi.URLParam(r, "investmentId"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "investment not found")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not delete investment")
		return
	}
	if investment.InvestorID != authUserID(r.Context()) {
		renderError(w, r, http.StatusForbidden, "you can only withdraw your own investment")
		return
	}

	if err := c.DB.Write.DeleteInvestment(r.Context(), investment.ID); err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not delete investment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *Console) embedInvestors(r *http.Request, investments []model.Investment) {
	investors := map[string]*model.User{}
	for i := range investments {
		investor, seen := investors[investments[i].InvestorID]
		if !seen {
			if user, err := c.DB.Read.GetUserByID(r.Context(), investments[i].InvestorID); err == nil {
				investor = &user
			}
			investors[investments[i].InvestorID] = investor
		}
		investments[i].Investor = investor
	}
}
