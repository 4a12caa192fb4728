package console

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/console/auth"
	"github.com/outpost-game/outpost/internal/console/database"
	"github.com/outpost-game/outpost/internal/model"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (c *Console) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Password == "" {
		renderError(w, r, http.StatusBadRequest, "name and password are required")
		return
	}

	password, err := auth.NewPassword(req.Password)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not process the password")
		return
	}

	user, err := c.DB.Write.CreateUser(r.Context(), database.CreateUserParams{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Password: password.String(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			renderError(w, r, http.StatusConflict, "this name is already taken")
			return
		}
		slog.Error("Could not create user", logging.Error(err))
		renderError(w, r, http.StatusInternalServerError, "could not create user")
		return
	}

	withStatus(r, http.StatusCreated)
	renderJSON(w, r, user)
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (c *Console) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := c.DB.Read.GetUserByName(r.Context(), req.Name)
	if err != nil || !auth.CheckPassword(req.Password, user.Password) {
		renderError(w, r, http.StatusUnauthorized, "incorrect password or username")
		return
	}

	token, err := auth.SignToken(c.Config.SecretKey, user.ID, time.Now())
	if err != nil {
		slog.Error("Could not sign token", logging.UserID(user.ID), logging.Error(err))
		renderError(w, r, http.StatusInternalServerError, "could not issue a token")
		return
	}

	renderJSON(w, r, loginResponse{Token: token, User: user})
}

func (c *Console) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	name := r.URL.Query().Get("name")

	total, err := c.DB.Read.CountUsers(r.Context(), name)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not list users")
		return
	}
	users, err := c.DB.Read.ListUsers(r.Context(), database.ListUsersParams{
		Name:   name,
		Limit:  page.Limit(),
		Offset: page.Offset(),
	})
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not list users")
		return
	}

	setLinkHeader(w, r, page, total)
	renderJSON(w, r, users)
}

func (c *Console) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := c.DB.Read.GetUserByID(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "user not found")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not fetch user")
		return
	}
	renderJSON(w, r, user)
}

type updateUserRequest struct {
	Name string `json:"name"`
}

func (c *Console) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if authUserID(r.Context()) != userID {
		renderError(w, r, http.StatusForbidden, "you can only change your own account")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		renderError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	user, err := c.DB.Write.UpdateUserName(r.Context(), userID, req.Name)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "user not found")
			return
		}
		if isUniqueViolation(err) {
			renderError(w, r, http.StatusConflict, "this name is already taken")
			return
		}
		renderError(w, r, http.StatusInternalServerError, "could not update user")
		return
	}
	renderJSON(w, r, user)
}

// handleDeleteUser removes the account together with every owned base, the
// investments placed on those bases and the investments the user placed
// elsewhere.
func (c *Console) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if authUserID(r.Context()) != userID {
		renderError(w, r, http.StatusForbidden, "you can only delete your own account")
		return
	}

	tx, queries, err := c.DB.WithTx(r.Context())
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not delete user")
		return
	}

	fail := func(err error) {
		slog.Error("Could not delete user", logging.UserID(userID), logging.Error(errors.Join(err, tx.Rollback())))
		renderError(w, r, http.StatusInternalServerError, "could not delete user")
	}

	owned, err := queries.ListBasesPage(r.Context(), database.ListBasesParams{
		OwnerID: userID,
		Limit:   -1,
	})
	if err != nil {
		fail(err)
		return
	}
	for _, base := range owned {
		if err := queries.DeleteBaseInvestments(r.Context(), base.ID); err != nil {
			fail(err)
			return
		}
		if err := queries.DeleteBase(r.Context(), base.ID); err != nil {
			fail(err)
			return
		}
	}
	if err := queries.DeleteInvestorInvestments(r.Context(), userID); err != nil {
		fail(err)
		return
	}
	if err := queries.DeleteUser(r.Context(), userID); err != nil {
		fail(err)
		return
	}
	if err := tx.Commit(); err != nil {
		renderError(w, r, http.StatusInternalServerError, "could not delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
