package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserDirectory
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserDirectory {
	return &UserRepository{db: db, logger: logger}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `
		SELECT id, company_id, role_id, name, email, is_active, created_at
		FROM users
		WHERE id = ?
	`

	var u entity.User
	err := r.exec(ctx).QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.CompanyID,
		&u.RoleID,
		&u.Name,
		&u.Email,
		&u.IsActive,
		&u.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// GetByRole retrieves a company's users holding the given role
func (r *UserRepository) GetByRole(ctx context.Context, companyID, roleID int64, activeOnly bool) ([]*entity.User, error) {
	query := `
		SELECT id, company_id, role_id, name, email, is_active, created_at
		FROM users
		WHERE company_id = ? AND role_id = ?
	`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.exec(ctx).QueryContext(ctx, query, companyID, roleID)
	if err != nil {
		r.logger.Error("Failed to get users by role",
			zap.Int64("company_id", companyID),
			zap.Int64("role_id", roleID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get users by role: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// GetManagersOf retrieves the configured managers of a user
func (r *UserRepository) GetManagersOf(ctx context.Context, userID int64) ([]*entity.User, error) {
	query := `
		SELECT u.id, u.company_id, u.role_id, u.name, u.email, u.is_active, u.created_at
		FROM manager_relationships mr
		JOIN users u ON mr.manager_id = u.id
		WHERE mr.user_id = ?
		ORDER BY u.id
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to get managers", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get managers: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

func (r *UserRepository) scanUsers(rows *sql.Rows) ([]*entity.User, error) {
	var users []*entity.User
	for rows.Next() {
		var u entity.User
		err := rows.Scan(
			&u.ID,
			&u.CompanyID,
			&u.RoleID,
			&u.Name,
			&u.Email,
			&u.IsActive,
			&u.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (r *UserRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.UserDirectory = (*UserRepository)(nil)
