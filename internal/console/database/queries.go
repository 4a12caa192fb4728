package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/outpost-game/outpost/internal/geo"
	"github.com/outpost-game/outpost/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// --- Users ---

type CreateUserParams struct {
	ID       string
	Name     string
	Password string
}

const createUser = `
INSERT INTO users (id, name, password, money)
VALUES (?, ?, ?, 0)
RETURNING id, name, password, money, created_at`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.ID, arg.Name, arg.Password)
	return scanUser(row)
}

const getUserByID = `
SELECT id, name, password, money, created_at FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByName = `
SELECT id, name, password, money, created_at FROM users WHERE name = ?`

func (q *Queries) GetUserByName(ctx context.Context, name string) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByName, name))
}

type ListUsersParams struct {
	Name   string
	Limit  int64
	Offset int64
}

const listUsers = `
SELECT id, name, password, money, created_at FROM users
WHERE (?1 = '' OR name = ?1)
ORDER BY created_at, id
LIMIT ?2 OFFSET ?3`

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers, arg.Name, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

const countUsers = `SELECT COUNT(*) FROM users WHERE (?1 = '' OR name = ?1)`

func (q *Queries) CountUsers(ctx context.Context, name string) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, countUsers, name).Scan(&total)
	return total, err
}

const updateUserName = `
UPDATE users SET name = ? WHERE id = ?
RETURNING id, name, password, money, created_at`

func (q *Queries) UpdateUserName(ctx context.Context, id, name string) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserName, name, id))
}

// AddToUserMoney atomically credits (or debits, for a negative delta) the
// user's balance and returns the new amount. A single UPDATE keeps concurrent
// increments from losing updates.
const addToUserMoney = `
UPDATE users SET money = money + ? WHERE id = ?
RETURNING money`

func (q *Queries) AddToUserMoney(ctx context.Context, id string, delta float64) (float64, error) {
	var money float64
	err := q.db.QueryRowContext(ctx, addToUserMoney, delta, id).Scan(&money)
	return money, notFound(err)
}

const deleteUser = `DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}

// --- Bases ---

type CreateBaseParams struct {
	ID      string
	OwnerID string
	Name    string
	Lon     float64
	Lat     float64
}

const createBase = `
INSERT INTO bases (id, owner_id, name, longitude, latitude)
VALUES (?, ?, ?, ?, ?)
RETURNING id, owner_id, name, longitude, latitude, created_at`

func (q *Queries) CreateBase(ctx context.Context, arg CreateBaseParams) (model.Base, error) {
	row := q.db.QueryRowContext(ctx, createBase, arg.ID, arg.OwnerID, arg.Name, arg.Lon, arg.Lat)
	return scanBase(row)
}

const getBaseByID = `
SELECT id, owner_id, name, longitude, latitude, created_at FROM bases WHERE id = ?`

func (q *Queries) GetBaseByID(ctx context.Context, id string) (model.Base, error) {
	return scanBase(q.db.QueryRowContext(ctx, getBaseByID, id))
}

type ListBasesParams struct {
	OwnerID string
	Limit   int64
	Offset  int64
}

const listBasesPage = `
SELECT id, owner_id, name, longitude, latitude, created_at FROM bases
WHERE (?1 = '' OR owner_id = ?1)
ORDER BY created_at, id
LIMIT ?2 OFFSET ?3`

func (q *Queries) ListBasesPage(ctx context.Context, arg ListBasesParams) ([]model.Base, error) {
	rows, err := q.db.QueryContext(ctx, listBasesPage, arg.OwnerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBases(rows)
}

const countBases = `SELECT COUNT(*) FROM bases WHERE (?1 = '' OR owner_id = ?1)`

func (q *Queries) CountBases(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, countBases, ownerID).Scan(&total)
	return total, err
}

// ListBases returns every stored base. The reconciliation loop reads the whole
// set once per tick.
const listBases = `
SELECT id, owner_id, name, longitude, latitude, created_at FROM bases ORDER BY created_at, id`

func (q *Queries) ListBases(ctx context.Context) ([]model.Base, error) {
	rows, err := q.db.QueryContext(ctx, listBases)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBases(rows)
}

const updateBaseName = `
UPDATE bases SET name = ? WHERE id = ?
RETURNING id, owner_id, name, longitude, latitude, created_at`

func (q *Queries) UpdateBaseName(ctx context.Context, id, name string) (model.Base, error) {
	return scanBase(q.db.QueryRowContext(ctx, updateBaseName, name, id))
}

const deleteBase = `DELETE FROM bases WHERE id = ?`

func (q *Queries) DeleteBase(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteBase, id)
	return err
}

// --- Investments ---

type CreateInvestmentParams struct {
	ID         string
	BaseID     string
	InvestorID string
}

const createInvestment = `
INSERT INTO investments (id, base_id, investor_id)
VALUES (?, ?, ?)
RETURNING id, base_id, investor_id, created_at`

func (q *Queries) CreateInvestment(ctx context.Context, arg CreateInvestmentParams) (model.Investment, error) {
	row := q.db.QueryRowContext(ctx, createInvestment, arg.ID, arg.BaseID, arg.InvestorID)
	return scanInvestment(row)
}

const getInvestmentByID = `
SELECT id, base_id, investor_id, created_at FROM investments WHERE id = ? AND base_id = ?`

func (q *Queries) GetInvestmentByID(ctx context.Context, baseID, id string) (model.Investment, error) {
	return scanInvestment(q.db.QueryRowContext(ctx, getInvestmentByID, id, baseID))
}

const listBaseInvestments = `
SELECT id, base_id, investor_id, created_at FROM investments WHERE base_id = ? ORDER BY created_at, id`

func (q *Queries) ListBaseInvestments(ctx context.Context, baseID string) ([]model.Investment, error) {
	rows, err := q.db.QueryContext(ctx, listBaseInvestments, baseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var investments []model.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		investments = append(investments, inv)
	}
	return investments, rows.Err()
}

const countBaseInvestments = `SELECT COUNT(*) FROM investments WHERE base_id = ?`

func (q *Queries) CountBaseInvestments(ctx context.Context, baseID string) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, countBaseInvestments, baseID).Scan(&total)
	return total, err
}

const countInvestorInvestments = `
SELECT COUNT(*) FROM investments WHERE base_id = ? AND investor_id = ?`

func (q *Queries) CountInvestorInvestments(ctx context.Context, baseID, investorID string) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, countInvestorInvestments, baseID, investorID).Scan(&total)
	return total, err
}

const deleteInvestment = `DELETE FROM investments WHERE id = ?`

func (q *Queries) DeleteInvestment(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteInvestment, id)
	return err
}

const deleteBaseInvestments = `DELETE FROM investments WHERE base_id = ?`

func (q *Queries) DeleteBaseInvestments(ctx context.Context, baseID string) error {
	_, err := q.db.ExecContext(ctx, deleteBaseInvestments, baseID)
	return err
}

const deleteInvestorInvestments = `DELETE FROM investments WHERE investor_id = ?`

func (q *Queries) DeleteInvestorInvestments(ctx context.Context, investorID string) error {
	_, err := q.db.ExecContext(ctx, deleteInvestorInvestments, investorID)
	return err
}

// --- Row scanning ---

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Password, &u.Money, &u.CreatedAt)
	return u, notFound(err)
}

func scanBase(row scanner) (model.Base, error) {
	var (
		b        model.Base
		lon, lat float64
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &lon, &lat, &b.CreatedAt)
	if err != nil {
		return b, notFound(err)
	}
	b.Location = geo.NewPoint(lon, lat)
	return b, nil
}

func scanInvestment(row scanner) (model.Investment, error) {
	var inv model.Investment
	err := row.Scan(&inv.ID, &inv.BaseID, &inv.InvestorID, &inv.CreatedAt)
	return inv, notFound(err)
}

func collectBases(rows *sql.Rows) ([]model.Base, error) {
	var bases []model.Base
	for rows.Next() {
		base, err := scanBase(rows)
		if err != nil {
			return nil, err
		}
		bases = append(bases, base)
	}
	return bases, rows.Err()
}
