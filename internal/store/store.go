package store

import (
	"context"
	"errors"
	"time"

	"excel-analyzer-go/internal/models"
)

// ErrNotFound is returned by owner-scoped lookups and deletes. A record
// owned by someone else and a record that never existed are deliberately
// indistinguishable through this error.
var ErrNotFound = errors.New("not found")

// UserStore handles account persistence (PostgreSQL)
type UserStore interface {
	CreateUser(ctx context.Context, name, email, password, role string) (models.User, error)
	GetUser(ctx context.Context, id int) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, id int, name, email string) error
	UpdateUserPassword(ctx context.Context, id int, newPasswordHash string) error
	UpdateUserRole(ctx context.Context, id int, role string) error
	UpdateUser2FA(ctx context.Context, id int, totpSecret string, enabled bool) error
	Disable2FA(ctx context.Context, id int) error
	DeleteUser(ctx context.Context, id int) error
	CountUsers(ctx context.Context) (total int, active int, err error)
}

// HistoryStore handles upload history records (PostgreSQL). Every
// record is owned by exactly one user; all reads and mutations are
// scoped to that owner.
type HistoryStore interface {
	CreateHistory(ctx context.Context, userID int, fileName string, columns []string, rows []models.Row) (models.UploadHistory, error)
	ListHistory(ctx context.Context, userID int) ([]models.UploadHistory, error)
	DeleteHistory(ctx context.Context, userID, id int) error
	ClearHistory(ctx context.Context, userID int) (int64, error)
	UpdateChartConfig(ctx context.Context, userID, id int, cfg models.ChartConfig) error
	CountHistory(ctx context.Context) (int64, error)
}

// ActivityStore handles the append-only audit trail (PostgreSQL).
type ActivityStore interface {
	InsertActivity(ctx context.Context, entry models.ActivityLog) error
	ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error)
}

// SessionStore handles short-lived auth state and operational counters
// (Redis): login throttling, token revocation, processing-time stats.
type SessionStore interface {
	RegisterLoginFailure(ctx context.Context, key string) (int64, error)
	ClearLoginFailures(ctx context.Context, key string) error
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	RecordProcessingTime(ctx context.Context, d time.Duration) error
	AvgProcessingTime(ctx context.Context) (time.Duration, error)
}
