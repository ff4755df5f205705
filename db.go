package main

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS render_history (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id     TEXT NOT NULL,
		user_id        TEXT NOT NULL,
		user_name      TEXT DEFAULT '',
		task_count     INTEGER NOT NULL,
		critical_count INTEGER NOT NULL,
		floating_count INTEGER NOT NULL,
		chart_path     TEXT DEFAULT '',
		export_path    TEXT DEFAULT '',
		rendered_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_rh_user ON render_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_rh_date ON render_history(rendered_at);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func InsertRenderRecord(db *sql.DB, rec RenderRecord) error {
	_, err := db.Exec(
		`INSERT INTO render_history (channel_id, user_id, user_name, task_count, critical_count, floating_count, chart_path, export_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ChannelID, rec.UserID, rec.UserName, rec.TaskCount,
		rec.CriticalCount, rec.FloatingCount, rec.ChartPath, rec.ExportPath,
	)
	return err
}

func GetRecentRenders(db *sql.DB, limit int) ([]RenderRecord, error) {
	rows, err := db.Query(
		`SELECT id, channel_id, user_id, user_name, task_count, critical_count, floating_count, chart_path, export_path, rendered_at
		 FROM render_history ORDER BY rendered_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RenderRecord
	for rows.Next() {
		var rec RenderRecord
		if err := rows.Scan(&rec.ID, &rec.ChannelID, &rec.UserID, &rec.UserName,
			&rec.TaskCount, &rec.CriticalCount, &rec.FloatingCount,
			&rec.ChartPath, &rec.ExportPath, &rec.RenderedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
