package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	authrepo "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/user/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	auth authdomain.Repository
}

func Provide() domain.Repository {
	return &repo{auth: authrepo.Provide()}
}

const userColumns = `id, username, name, email, password_hash, role, active, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, u *authdomain.User) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Username,
		u.Name,
		db.NullString(u.Email),
		u.PasswordHash,
		u.Role,
		u.Active,
		u.CreatedAt,
		u.UpdatedAt,
	).Error
}

// Update leaves the stored hash alone when passwordHash is nil.
func (r *repo) Update(ctx context.Context, conn *gorm.DB, u *authdomain.User, passwordHash *string) (bool, error) {
	stmt := `UPDATE users SET name = ?, email = ?, role = ?, active = ?, updated_at = ?`
	args := []any{u.Name, db.NullString(u.Email), u.Role, u.Active, u.UpdatedAt}
	if passwordHash != nil {
		stmt += `, password_hash = ?`
		args = append(args, *passwordHash)
	}
	args = append(args, u.ID)

	res := conn.WithContext(ctx).Exec(stmt+` WHERE id = ?`, args...)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.DeleteChildren(ctx, conn, "user_permissions", "user_id", id); err != nil {
		return false, err
	}
	res := conn.WithContext(ctx).Exec(`DELETE FROM users WHERE id = ?`, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*authdomain.User, error) {
	return r.auth.FindByID(ctx, conn, id)
}

func (r *repo) List(ctx context.Context, conn *gorm.DB) ([]authdomain.User, error) {
	var rows []authdomain.User
	err := conn.WithContext(ctx).Raw(`SELECT ` + userColumns + ` FROM users ORDER BY username ASC`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ReplacePermissions(ctx context.Context, conn *gorm.DB, userID snowflake.ID, rows []authdomain.UserPermission) error {
	return db.ReplaceChildren(ctx, conn, "user_permissions", "user_id", userID, rows)
}

func (r *repo) ListPermissions(ctx context.Context, conn *gorm.DB, userIDs []snowflake.ID) (map[snowflake.ID][]string, error) {
	return r.auth.ListPermissions(ctx, conn, userIDs)
}

func (r *repo) UsernameTaken(ctx context.Context, conn *gorm.DB, username string) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(`SELECT COUNT(1) FROM users WHERE username = ?`, username).Scan(&count).Error
	return count > 0, err
}

func (r *repo) HasTickets(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM tickets WHERE requester_id = ? OR assignee_id = ?`,
		id, id,
	).Scan(&count).Error
	return count > 0, err
}
