package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	"excel-analyzer-go/internal/models"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RunMigrations creates tables if they don't exist and applies schema updates
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	// Create tables
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}

	// Apply migrations for existing tables
	migrations := []string{
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS totp_secret VARCHAR(255);`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS totp_enabled BOOLEAN DEFAULT FALSE;`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS last_password_change TIMESTAMP WITH TIME ZONE DEFAULT NOW();`,
		`ALTER TABLE upload_history ADD COLUMN IF NOT EXISTS selected_x_axis VARCHAR(255);`,
		`ALTER TABLE upload_history ADD COLUMN IF NOT EXISTS selected_y_axis VARCHAR(255);`,
		`ALTER TABLE upload_history ADD COLUMN IF NOT EXISTS chart_type VARCHAR(50);`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// User methods

func (s *PostgresStore) CreateUser(ctx context.Context, name, email, password, role string) (models.User, error) {
	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, name, email, password_hash, role, created_at`,
		name, email, passwordHash, role,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)

	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int) (models.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (models.User, error) {
	var user models.User
	var totpSecret sql.NullString
	var lastPasswordChange sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, totp_secret, totp_enabled, last_password_change, created_at
		 FROM users `+where,
		arg,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&totpSecret, &user.TOTPEnabled, &lastPasswordChange, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	if totpSecret.Valid {
		user.TOTPSecret = totpSecret.String
	}
	if lastPasswordChange.Valid {
		user.LastPasswordChange = lastPasswordChange.Time
	}

	return user, nil
}

func (s *PostgresStore) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, password_hash, role, totp_secret, totp_enabled, last_password_change, created_at
		 FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var totpSecret sql.NullString
		var lastPasswordChange sql.NullTime

		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
			&totpSecret, &user.TOTPEnabled, &lastPasswordChange, &user.CreatedAt); err != nil {
			log.Printf("warning: skipping unreadable user row: %v", err)
			continue
		}

		if totpSecret.Valid {
			user.TOTPSecret = totpSecret.String
		}
		if lastPasswordChange.Valid {
			user.LastPasswordChange = lastPasswordChange.Time
		}

		users = append(users, user)
	}

	return users, nil
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, id int, name, email string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = $1, email = $2 WHERE id = $3`,
		name, email, id,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, id int, newPasswordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, last_password_change = NOW() WHERE id = $2`,
		newPasswordHash, id,
	)
	return err
}

func (s *PostgresStore) UpdateUserRole(ctx context.Context, id int, role string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = $1 WHERE id = $2`,
		role, id,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, int, error) {
	var total, active int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE role <> $1) FROM users`,
		models.RoleBlocked,
	).Scan(&total, &active)
	return total, active, err
}

// 2FA methods

func (s *PostgresStore) UpdateUser2FA(ctx context.Context, id int, totpSecret string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $1, totp_enabled = $2 WHERE id = $3`,
		totpSecret, enabled, id,
	)
	return err
}

func (s *PostgresStore) Disable2FA(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = NULL, totp_enabled = FALSE WHERE id = $1`,
		id,
	)
	return err
}
