package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"excel-analyzer-go/internal/models"
)

// Activity log methods (PostgreSQL). Entries are append-only; there is
// no update or delete path.

func (s *PostgresStore) InsertActivity(ctx context.Context, entry models.ActivityLog) error {
	if !models.ValidAction(entry.Action) {
		return fmt.Errorf("invalid activity action: %q", entry.Action)
	}

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (user_id, action, description, ip_address, user_agent, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		entry.UserID, entry.Action, entry.Description, entry.IPAddress, entry.UserAgent, metadataJSON,
	)
	return err
}

func (s *PostgresStore) ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != 0 {
		conds = append(conds, "l.user_id = "+arg(filter.UserID))
	}
	if filter.Action != "" {
		conds = append(conds, "l.action = "+arg(filter.Action))
	}
	if !filter.StartDate.IsZero() {
		conds = append(conds, "l.created_at >= "+arg(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		conds = append(conds, "l.created_at <= "+arg(filter.EndDate))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_logs l `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT l.id, l.user_id, COALESCE(u.name, ''), COALESCE(u.email, ''),
	                 l.action, l.description, l.ip_address, l.user_agent, l.metadata, l.created_at
	          FROM activity_logs l
	          LEFT JOIN users u ON u.id = l.user_id
	          ` + where + `
	          ORDER BY l.created_at DESC, l.id DESC
	          LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var entry models.ActivityLog
		var ip, agent sql.NullString
		var metadataJSON []byte

		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.UserName, &entry.UserEmail,
			&entry.Action, &entry.Description, &ip, &agent, &metadataJSON, &entry.Timestamp); err != nil {
			log.Printf("warning: skipping unreadable activity row: %v", err)
			continue
		}

		if ip.Valid {
			entry.IPAddress = ip.String
		}
		if agent.Valid {
			entry.UserAgent = agent.String
		}
		if len(metadataJSON) > 0 {
			_ = json.Unmarshal(metadataJSON, &entry.Metadata)
		}

		logs = append(logs, entry)
	}

	return logs, total, rows.Err()
}
