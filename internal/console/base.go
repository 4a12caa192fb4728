package console

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/console/database"
	"github.com/outpost-game/outpost/internal/geo"
	"github.com/outpost-game/outpost/internal/model"
)

type createBaseRequest struct {
	Name     string    `json:"name"`
	Location geo.Point `json:"location"`
}

// handleCreateBase places a new base for the authenticated user. A base must
// keep its distance from every existing base, and each additional base costs
// more than the previous one: ownedBases x initialBasePrice, deducted from the
// owner's balance.
func (c *Console) handleCreateBase(w http.ResponseWriter, r *http.Request) {
	ownerID := authUserID(r.Context())

	var req createBaseRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		renderError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if !req.Location.Valid() {
		renderError(w, r, http.StatusUnprocessableEntity, "invalid location")
		return
	}

	if _, err := c.DB.Read.GetUserByID(r.Context(), ownerID); err != nil {
		renderError(w, r, http.StatusUnauthorized, "unknown user")
		return
	}

	existing, err := c.DB.Read.ListBases(r.Context())
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not create base")
		return
	}
	for _, other := range existing {
		if geo.Distance(req.Location, other.Location) < c.Config.MaxDistanceBetweenBases {
			renderError(w, r, http.StatusConflict, "too close to an existing base")
			return
		}
	}

	owned, err := c.DB.Read.CountBases(r.Context(), ownerID)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not create base")
		return
	}
	price := float64(owned) * c.Config.InitialBasePrice

	tx, queries, err := c.DB.WithTx(r.Context())
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not create base")
		return
	}

	if price > 0 {
		balance, err := queries.AddToUserMoney(r.Context(), ownerID, -price)
		if err != nil {
			_ = tx.Rollback()
			renderError(w, r, http.StatusInternalServerError, "could not create base")
			return
		}
		if balance < 0 {
			_ = tx.Rollback()
			renderError(w, r, http.StatusConflict, "not enough money")
			return
		}
	}

	base, err := queries.CreateBase(r.Context(), database.CreateBaseParams{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    req.Name,
		Lon:     req.Location.Lon(),
		Lat:     req.Location.Lat(),
	})
	if err != nil {
		slog.Error("Could not create base", logging.UserID(ownerID), logging.Error(errors.Join(err, tx.Rollback())))
		renderError(w, r, http.StatusInternalServerError, "could not create base")
		return
	}
	if err := tx.Commit(); err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not create base")
		return
	}

	withStatus(r, http.StatusCreated)
	renderJSON(w, r, base)
}

func (c *Console) handleListBases(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	ownerID := r.URL.Query().Get("ownerId")

	total, err := c.DB.Read.CountBases(r.Context(), ownerID)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not list bases")
		return
	}
	bases, err := c.DB.Read.ListBasesPage(r.Context(), database.ListBasesParams{
		OwnerID: ownerID,
		Limit:   page.Limit(),
		Offset:  page.Offset(),
	})
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not list bases")
		return
	}
	c.embedOwners(r, bases)

	setLinkHeader(w, r, page, total)
	renderJSON(w, r, bases)
}

func (c *Console) handleGetBase(w http.ResponseWriter, r *http.Request) {
	base, err := c.DB.Read.GetBaseByID(r.Context(), chi.URLParam(r, "baseId"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "base not found")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not fetch base")
		return
	}

	bases := []model.Base{base}
	c.embedOwners(r, bases)
	renderJSON(w, r, bases[0])
}

type updateBaseRequest struct {
	Name string `json:"name"`
}

// handleUpdateBase renames a base. Location and owner are immutable; moving a
// base would sidestep the placement rules.
func (c *Console) handleUpdateBase(w http.ResponseWriter, r *http.Request) {
	baseID := chi.URLParam(r, "baseId")

	base, err := c.DB.Read.GetBaseByID(r.Context(), baseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "base not found")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not update base")
		return
	}
	if base.OwnerID != authUserID(r.Context()) {
		renderError(w, r, http.StatusForbidden, "you can only rename your own base")
		return
	}

	var req updateBaseRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		renderError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	updated, err := c.DB.Write.UpdateBaseName(r.Context(), baseID, req.Name)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not update base")
		return
	}
	renderJSON(w, r, updated)
}

func (c *Console) handleDeleteBase(w http.ResponseWriter, r *http.Request) {
	baseID := chi.URLParam(r, "baseId")

	base, err := c.DB.Read.GetBaseByID(r.Context(), baseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "base not found")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not delete base")
		return
	}
	if base.OwnerID != authUserID(r.Context()) {
		renderError(w, r, http.StatusForbidden, "you can only delete your own base")
		return
	}

	tx, queries, err := c.DB.WithTx(r.Context())
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not delete base")
		return
	}
	if err := queries.DeleteBaseInvestments(r.Context(), baseID); err != nil {
		slog.Error("Could not delete base", logging.BaseID(baseID), logging.Error(errors.Join(err, tx.Rollback())))
		renderError(w, r, http.StatusInternalServerError, "could not delete base")
		return
	}
	if err := queries.DeleteBase(r.Context(), baseID); err != nil {
		slog.Error("Could not delete base", logging.BaseID(baseID), logging.Error(errors.Join(err, tx.Rollback())))
		renderError(w, r, http.StatusInternalServerError, "could not delete base")
		return
	}
	if err := tx.Commit(); err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not delete base")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// embedOwners fills in the owner relation on the listed bases. Lookups are
// shared across bases with the same owner; a missing owner is left nil.
func (c *Console) embedOwners(r *http.Request, bases []model.Base) {
	owners := map[string]*model.User{}
	for i := range bases {
		owner, seen := owners[bases[i].OwnerID]
		if !seen {
			if user, err := c.DB.Read.GetUserByID(r.Context(), bases[i].OwnerID); err == nil {
				owner = &user
			}
			owners[bases[i].OwnerID] = owner
		}
		bases[i].Owner = owner
	}
}
