package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/outpost-game/outpost/internal/app/logger"
	"github.com/outpost-game/outpost/internal/console/database"
	"github.com/outpost-game/outpost/internal/game"
	"github.com/outpost-game/outpost/internal/geo"
	"github.com/outpost-game/outpost/internal/model"
	"github.com/outpost-game/outpost/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetDiscardLogger()
	m.Run()
}

func newTestConsole(t *testing.T, opts ...Option) (*Console, *httptest.Server) {
	t.Helper()
	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	con := NewConsole(db, opts...)
	ts := httptest.NewServer(con.HttpRouter())
	t.Cleanup(ts.Close)
	return con, ts
}

func doJSON(t *testing.T, method, url, token string, body any) (int, []byte, http.Header) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out, resp.Header
}

// registerUser creates an account through the API and logs it in.
func registerUser(t *testing.T, ts *httptest.Server, name string) (model.User, string) {
	t.Helper()
	status, body, _ := doJSON(t, http.MethodPost, ts.URL+"/api/users", "",
		map[string]string{"name": name, "password": "secret"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body, _ = doJSON(t, http.MethodPost, ts.URL+"/api/users/login", "",
		map[string]string{"name": name, "password": "secret"})
	require.Equal(t, http.StatusOK, status, string(body))

	var login loginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	return login.User, login.Token
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestConsole(t)
	status, body, _ := doJSON(t, http.MethodGet, ts.URL+"/_health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"OK"}`, string(body))
}

func TestRegisterLoginRename(t *testing.T) {
	_, ts := newTestConsole(t)

	user, token := registerUser(t, ts, "alice")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, 0.0, user.Money)
	assert.NotEmpty(t, token)

	// Duplicate name is rejected.
	status, _, _ := doJSON(t, http.MethodPost, ts.URL+"/api/users", "",
		map[string]string{"name": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, status)

	// Wrong password is rejected.
	status, _, _ = doJSON(t, http.MethodPost, ts.URL+"/api/users/login", "",
		map[string]string{"name": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Rename requires a token and only works on your own account.
	status, _, _ = doJSON(t, http.MethodPatch, ts.URL+"/api/users/"+user.ID, "",
		map[string]string{"name": "alicia"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body, _ := doJSON(t, http.MethodPatch, ts.URL+"/api/users/"+user.ID, token,
		map[string]string{"name": "alicia"})
	require.Equal(t, http.StatusOK, status)
	var renamed model.User
	require.NoError(t, json.Unmarshal(body, &renamed))
	assert.Equal(t, "alicia", renamed.Name)

	_, otherToken := registerUser(t, ts, "bob")
	status, _, _ = doJSON(t, http.MethodPatch, ts.URL+"/api/users/"+user.ID, otherToken,
		map[string]string{"name": "mallory"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRequireJSONContentType(t *testing.T) {
	_, ts := newTestConsole(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/users",
		strings.NewReader(`{"name":"alice","password":"secret"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestListUsersLinkHeader(t *testing.T) {
	_, ts := newTestConsole(t)

	for _, name := range []string{"alice", "bob", "carol"} {
		registerUser(t, ts, name)
	}

	status, body, header := doJSON(t, http.MethodGet, ts.URL+"/api/users?page=1&pageSize=2", "", nil)
	require.Equal(t, http.StatusOK, status)

	var users []model.User
	require.NoError(t, json.Unmarshal(body, &users))
	assert.Len(t, users, 2)
	assert.Equal(t, "3", header.Get("X-Total-Count"))
	link := header.Get("Link")
	assert.Contains(t, link, `rel="next"`)
	assert.Contains(t, link, `rel="last"`)
	assert.NotContains(t, link, `rel="prev"`)
}

func TestCreateBaseRules(t *testing.T) {
	con, ts := newTestConsole(t)

	user, token := registerUser(t, ts, "alice")

	// The first base is free.
	status, body, _ := doJSON(t, http.MethodPost, ts.URL+"/api/bases", token,
		map[string]any{"name": "Harbor", "location": geo.NewPoint(6.63, 46.52)})
	require.Equal(t, http.StatusCreated, status, string(body))
	var first model.Base
	require.NoError(t, json.Unmarshal(body, &first))
	assert.Equal(t, user.ID, first.OwnerID)

	// Too close to the first one.
	status, _, _ = doJSON(t, http.MethodPost, ts.URL+"/api/bases", token,
		map[string]any{"name": "Annex", "location": geo.NewPoint(6.6301, 46.5201)})
	assert.Equal(t, http.StatusConflict, status)

	// Far enough, but the second base costs money the user does not have.
	status, _, _ = doJSON(t, http.MethodPost, ts.URL+"/api/bases", token,
		map[string]any{"name": "Outskirts", "location": geo.NewPoint(7.0, 46.0)})
	assert.Equal(t, http.StatusConflict, status)

	// Funded, the purchase goes through and the price is deducted.
	_, err := con.DB.Write.AddToUserMoney(context.Background(), user.ID, 150)
	require.NoError(t, err)
	status, body, _ = doJSON(t, http.MethodPost, ts.URL+"/api/bases", token,
		map[string]any{"name": "Outskirts", "location": geo.NewPoint(7.0, 46.0)})
	require.Equal(t, http.StatusCreated, status, string(body))

	funded, err := con.DB.Read.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, funded.Money)

	// Invalid coordinates are rejected.
	status, _, _ = doJSON(t, http.MethodPost, ts.URL+"/api/bases", token,
		map[string]any{"name": "Nowhere", "location": geo.NewPoint(10, 95)})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestListBasesEmbedsOwner(t *testing.T) {
	_, ts := newTestConsole(t)

	user, token := registerUser(t, ts, "alice")
	status, _, _ := doJSON(t, http.MethodPost, ts.URL+"/api/bases", token,
		map[string]any{"name": "Harbor", "location": geo.NewPoint(6.63, 46.52)})
	require.Equal(t, http.StatusCreated, status)

	status, body, _ := doJSON(t, http.MethodGet, ts.URL+"/api/bases?ownerId="+user.ID, "", nil)
	require.Equal(t, http.StatusOK, status)

	var bases []model.Base
	require.NoError(t, json.Unmarshal(body, &bases))
	require.Len(t, bases, 1)
	require.NotNil(t, bases[0].Owner)
	assert.Equal(t, "alice", bases[0].Owner.Name)
}

func TestInvestmentRules(t *testing.T) {
	con, ts := newTestConsole(t)

	_, ownerToken := registerUser(t, ts, "owner")
	status, body, _ := doJSON(t, http.MethodPost, ts.URL+"/api/bases", ownerToken,
		map[string]any{"name": "Harbor", "location": geo.NewPoint(6.63, 46.52)})
	require.Equal(t, http.StatusCreated, status)
	var base model.Base
	require.NoError(t, json.Unmarshal(body, &base))

	investURL := fmt.Sprintf("%s/api/bases/%s/investments", ts.URL, base.ID)

	// Owners cannot invest in their own base.
	status, _, _ = doJSON(t, http.MethodPost, investURL, ownerToken, map[string]any{})
	assert.Equal(t, http.StatusConflict, status)

	investor, investorToken := registerUser(t, ts, "investor")

	// Broke investors are turned away.
	status, _, _ = doJSON(t, http.MethodPost, investURL, investorToken, map[string]any{})
	assert.Equal(t, http.StatusConflict, status)

	_, err := con.DB.Write.AddToUserMoney(context.Background(), investor.ID, 120)
	require.NoError(t, err)

	status, body, _ = doJSON(t, http.MethodPost, investURL, investorToken, map[string]any{})
	require.Equal(t, http.StatusCreated, status, string(body))
	var investment model.Investment
	require.NoError(t, json.Unmarshal(body, &investment))
	assert.Equal(t, investor.ID, investment.InvestorID)

	// The price was deducted.
	funded, err := con.DB.Read.GetUserByID(context.Background(), investor.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, funded.Money)

	// One investment per investor per base.
	status, _, _ = doJSON(t, http.MethodPost, investURL, investorToken, map[string]any{})
	assert.Equal(t, http.StatusConflict, status)

	// Withdrawing is investor-only and not refunded.
	status, _, _ = doJSON(t, http.MethodDelete, investURL+"/"+investment.ID, ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _, _ = doJSON(t, http.MethodDelete, investURL+"/"+investment.ID, investorToken, nil)
	assert.Equal(t, http.StatusNoContent, status)

	after, err := con.DB.Read.GetUserByID(context.Background(), investor.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, after.Money)
}

func TestDeleteUserCascades(t *testing.T) {
	con, ts := newTestConsole(t)

	user, token := registerUser(t, ts, "alice")
	status, body, _ := doJSON(t, http.MethodPost, ts.URL+"/api/bases", token,
		map[string]any{"name": "Harbor", "location": geo.NewPoint(6.63, 46.52)})
	require.Equal(t, http.StatusCreated, status)
	var base model.Base
	require.NoError(t, json.Unmarshal(body, &base))

	status, _, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/users/"+user.ID, token, nil)
	require.Equal(t, http.StatusNoContent, status)

	_, err := con.DB.Read.GetUserByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = con.DB.Read.GetBaseByID(context.Background(), base.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestWebSocketEndToEnd(t *testing.T) {
	settings := game.DefaultSettings()
	settings.ReconcileInterval = 20 * time.Millisecond
	settings.BroadcastInterval = 20 * time.Millisecond

	con, ts := newTestConsole(t, WithGameSettings(settings))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go con.Game.Run(ctx)

	user, token := registerUser(t, ts, "alice")
	status, _, _ := doJSON(t, http.MethodPost, ts.URL+"/api/bases", token,
		map[string]any{"name": "Harbor", "location": geo.NewPoint(6.63, 46.52)})
	require.Equal(t, http.StatusCreated, status)

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/game"
	conn, err := wire.Connect(ctx, wsURL, time.Second)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wire.SendLocation(ctx, conn, user.ID, 6.63, 46.52))

	// The loop should pick up the occupancy and start pushing balances.
	var sawMoney bool
	for !sawMoney {
		_, payload, err := conn.Read(ctx)
		require.NoError(t, err)

		cmd, err := wire.DecodeCommand(payload)
		require.NoError(t, err)
		if cmd != wire.CmdUpdateUser {
			continue
		}

		var msg struct {
			Params wire.UpdateUserParams `json:"params"`
		}
		require.NoError(t, json.Unmarshal(payload, &msg))
		if msg.Params.Money > 0 {
			assert.Equal(t, settings.BaseIncome, msg.Params.Income)
			sawMoney = true
		}
	}
}
