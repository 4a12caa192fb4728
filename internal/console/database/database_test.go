package database

import (
	"context"
	"sync"
	"testing"

	"github.com/outpost-game/outpost/internal/app/logger"
	"github.com/outpost-game/outpost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetDiscardLogger()
	m.Run()
}

func setupDatabase(t *testing.T) *SQLite {
	t.Helper()
	db, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestUser(t *testing.T, db *SQLite, id, name string) model.User {
	t.Helper()
	user, err := db.Write.CreateUser(context.Background(), CreateUserParams{
		ID:       id,
		Name:     name,
		Password: "hash",
	})
	require.NoError(t, err)
	return user
}

func TestUserLifecycle(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	created := createTestUser(t, db, "u1", "alice")
	assert.Equal(t, 0.0, created.Money)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := db.Read.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Name)

	byName, err := db.Read.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)

	renamed, err := db.Write.UpdateUserName(ctx, "u1", "alicia")
	require.NoError(t, err)
	assert.Equal(t, "alicia", renamed.Name)

	require.NoError(t, db.Write.DeleteUser(ctx, "u1"))
	_, err = db.Read.GetUserByID(ctx, "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateUserDuplicateName(t *testing.T) {
	db := setupDatabase(t)

	createTestUser(t, db, "u1", "alice")
	_, err := db.Write.CreateUser(context.Background(), CreateUserParams{
		ID:       "u2",
		Name:     "alice",
		Password: "hash",
	})
	require.Error(t, err)
}

func TestListUsersPagination(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		createTestUser(t, db, name, name)
	}

	total, err := db.Read.CountUsers(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	page, err := db.Read.ListUsers(ctx, ListUsersParams{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	filtered, err := db.Read.ListUsers(ctx, ListUsersParams{Name: "bob", Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "bob", filtered[0].Name)
}

func TestAddToUserMoney(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	createTestUser(t, db, "u1", "alice")

	balance, err := db.Write.AddToUserMoney(ctx, "u1", 16)
	require.NoError(t, err)
	assert.Equal(t, 16.0, balance)

	balance, err = db.Write.AddToUserMoney(ctx, "u1", -6)
	require.NoError(t, err)
	assert.Equal(t, 10.0, balance)

	_, err = db.Write.AddToUserMoney(ctx, "ghost", 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAddToUserMoneyConcurrent(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	createTestUser(t, db, "u1", "alice")

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.Write.AddToUserMoney(ctx, "u1", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := db.Read.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, float64(workers), user.Money, "no increment may be lost")
}

func TestBaseLifecycle(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	createTestUser(t, db, "u1", "alice")

	base, err := db.Write.CreateBase(ctx, CreateBaseParams{
		ID:      "b1",
		OwnerID: "u1",
		Name:    "Harbor",
		Lon:     6.63,
		Lat:     46.52,
	})
	require.NoError(t, err)
	assert.Equal(t, 6.63, base.Location.Lon())
	assert.Equal(t, 46.52, base.Location.Lat())

	all, err := db.Read.ListBases(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	owned, err := db.Read.CountBases(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), owned)

	renamed, err := db.Write.UpdateBaseName(ctx, "b1", "New Harbor")
	require.NoError(t, err)
	assert.Equal(t, "New Harbor", renamed.Name)

	require.NoError(t, db.Write.DeleteBase(ctx, "b1"))
	_, err = db.Read.GetBaseByID(ctx, "b1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInvestmentRules(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	createTestUser(t, db, "owner", "owner")
	createTestUser(t, db, "investor", "investor")
	_, err := db.Write.CreateBase(ctx, CreateBaseParams{
		ID: "b1", OwnerID: "owner", Name: "Harbor", Lon: 0, Lat: 0,
	})
	require.NoError(t, err)

	investment, err := db.Write.CreateInvestment(ctx, CreateInvestmentParams{
		ID: "i1", BaseID: "b1", InvestorID: "investor",
	})
	require.NoError(t, err)
	assert.Equal(t, "b1", investment.BaseID)

	// One investment per investor per base.
	_, err = db.Write.CreateInvestment(ctx, CreateInvestmentParams{
		ID: "i2", BaseID: "b1", InvestorID: "investor",
	})
	require.Error(t, err)

	count, err := db.Read.CountBaseInvestments(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	mine, err := db.Read.CountInvestorInvestments(ctx, "b1", "investor")
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine)

	got, err := db.Read.GetInvestmentByID(ctx, "b1", "i1")
	require.NoError(t, err)
	assert.Equal(t, "investor", got.InvestorID)

	require.NoError(t, db.Write.DeleteBaseInvestments(ctx, "b1"))
	_, err = db.Read.GetInvestmentByID(ctx, "b1", "i1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestWithTxRollback(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	createTestUser(t, db, "u1", "alice")

	tx, queries, err := db.WithTx(ctx)
	require.NoError(t, err)
	_, err = queries.AddToUserMoney(ctx, "u1", 100)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	user, err := db.Read.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, user.Money)
}

func TestSeed(t *testing.T) {
	db := setupDatabase(t)

	require.NoError(t, Seed(db.Write))
	user, err := db.Read.GetUserByName(context.Background(), "scout")
	require.NoError(t, err)
	assert.NotEmpty(t, user.Password)
}
