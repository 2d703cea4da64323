package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// SQLDirectory reads the users and categories tables.
type SQLDirectory struct {
	db *sql.DB
}

func NewSQLDirectory(db *sql.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

func (d *SQLDirectory) LookupUser(ctx context.Context, id string) (model.UserSummary, error) {
	var u model.UserSummary
	err := d.db.QueryRowContext(ctx, `SELECT id, name FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserSummary{}, model.NotFound("user %s was not found", id)
		}
		return model.UserSummary{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (d *SQLDirectory) LookupCategory(ctx context.Context, id string) (model.CategorySummary, error) {
	var c model.CategorySummary
	err := d.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CategorySummary{}, model.NotFound("category %s was not found", id)
		}
		return model.CategorySummary{}, fmt.Errorf("lookup category: %w", err)
	}
	return c, nil
}

func (d *SQLDirectory) CreateUser(ctx context.Context, name, email string) (model.UserSummary, error) {
	u := model.UserSummary{ID: uuid.NewString(), Name: name}
	_, err := d.db.ExecContext(ctx, `INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`, u.ID, name, email)
	if err != nil {
		if isUniqueViolation(err) {
			return model.UserSummary{}, model.Conflict("email %s is already registered", email)
		}
		return model.UserSummary{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (d *SQLDirectory) CreateCategory(ctx context.Context, name string) (model.CategorySummary, error) {
	c := model.CategorySummary{ID: uuid.NewString(), Name: name}
	_, err := d.db.ExecContext(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2)`, c.ID, name)
	if err != nil {
		if isUniqueViolation(err) {
			return model.CategorySummary{}, model.Conflict("category %q already exists", name)
		}
		return model.CategorySummary{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
