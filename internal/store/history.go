package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"excel-analyzer-go/internal/models"
)

// Upload history methods (PostgreSQL)

func (s *PostgresStore) CreateHistory(ctx context.Context, userID int, fileName string, columns []string, rows []models.Row) (models.UploadHistory, error) {
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = []models.Row{}
	}

	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return models.UploadHistory{}, fmt.Errorf("failed to encode columns: %w", err)
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return models.UploadHistory{}, fmt.Errorf("failed to encode rows: %w", err)
	}

	record := models.UploadHistory{
		UserID:   userID,
		FileName: fileName,
		Columns:  columns,
		Rows:     rows,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO upload_history (user_id, file_name, columns, chart_data, uploaded_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, uploaded_at`,
		userID, fileName, columnsJSON, rowsJSON,
	).Scan(&record.ID, &record.UploadedAt)

	if err != nil {
		return models.UploadHistory{}, err
	}

	return record, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, userID int) ([]models.UploadHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, file_name, columns, chart_data,
		        selected_x_axis, selected_y_axis, chart_type, uploaded_at
		 FROM upload_history
		 WHERE user_id = $1
		 ORDER BY uploaded_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.UploadHistory
	for rows.Next() {
		var record models.UploadHistory
		var columnsJSON, rowsJSON []byte
		var xAxis, yAxis, chartType sql.NullString

		if err := rows.Scan(&record.ID, &record.UserID, &record.FileName, &columnsJSON, &rowsJSON,
			&xAxis, &yAxis, &chartType, &record.UploadedAt); err != nil {
			log.Printf("warning: skipping unreadable history row: %v", err)
			continue
		}

		if err := json.Unmarshal(columnsJSON, &record.Columns); err != nil {
			log.Printf("warning: skipping history row %d with corrupt columns: %v", record.ID, err)
			continue
		}
		if err := json.Unmarshal(rowsJSON, &record.Rows); err != nil {
			log.Printf("warning: skipping history row %d with corrupt chart data: %v", record.ID, err)
			continue
		}
		if xAxis.Valid {
			record.SelectedXAxis = xAxis.String
		}
		if yAxis.Valid {
			record.SelectedYAxis = yAxis.String
		}
		if chartType.Valid {
			record.ChartType = chartType.String
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// DeleteHistory removes one record, but only when userID owns it. A
// miss on either condition reports ErrNotFound so callers cannot probe
// for other users' record ids.
func (s *PostgresStore) DeleteHistory(ctx context.Context, userID, id int) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM upload_history WHERE id = $1 AND user_id = $2`,
		id, userID,
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

func (s *PostgresStore) ClearHistory(ctx context.Context, userID int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM upload_history WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (s *PostgresStore) UpdateChartConfig(ctx context.Context, userID, id int, cfg models.ChartConfig) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE upload_history
		 SET selected_x_axis = $1, selected_y_axis = $2, chart_type = $3
		 WHERE id = $4 AND user_id = $5`,
		cfg.SelectedXAxis, cfg.SelectedYAxis, cfg.ChartType, id, userID,
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

func (s *PostgresStore) CountHistory(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM upload_history`).Scan(&count)
	return count, err
}
