package database

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, run_id, timestamp, action, object_type, path, file_name, size,
	       passes, duration_ms, error_kind, operation, error_message
	FROM erasures
`

// GetRecentErasures returns the N most recent erasure attempts
func (d *ErasureDB) GetRecentErasures(limit int) ([]ErasureRecord, error) {
	return d.queryErasures(selectColumns+`ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// GetErasuresByAction returns attempts with the given action
func (d *ErasureDB) GetErasuresByAction(action string) ([]ErasureRecord, error) {
	return d.queryErasures(selectColumns+`WHERE action = ? ORDER BY timestamp DESC, id DESC`, action)
}

// GetErasuresByPath returns attempts whose path matches a LIKE pattern
func (d *ErasureDB) GetErasuresByPath(pathPattern string) ([]ErasureRecord, error) {
	return d.queryErasures(selectColumns+`WHERE path LIKE ? ORDER BY timestamp DESC, id DESC`, pathPattern)
}

// GetErasuresByRun returns every attempt made by one CLI invocation or spool pass
func (d *ErasureDB) GetErasuresByRun(runID string) ([]ErasureRecord, error) {
	return d.queryErasures(selectColumns+`WHERE run_id = ? ORDER BY id ASC`, runID)
}

// GetErasuresByDateRange returns attempts within a time range
func (d *ErasureDB) GetErasuresByDateRange(start, end time.Time) ([]ErasureRecord, error) {
	return d.queryErasures(selectColumns+`WHERE timestamp BETWEEN ? AND ? ORDER BY timestamp DESC, id DESC`, start, end)
}

// GetRecentErasuresPaginated returns a page of recent attempts plus the total count
func (d *ErasureDB) GetRecentErasuresPaginated(limit, offset int) ([]ErasureRecord, int, error) {
	var totalCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM erasures").Scan(&totalCount); err != nil {
		return nil, 0, err
	}
	records, err := d.queryErasures(selectColumns+`ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	return records, totalCount, err
}

// GetBytesErased returns the total original size of shredded objects in a range
func (d *ErasureDB) GetBytesErased(start, end time.Time) (int64, error) {
	var total int64
	err := d.db.QueryRow(`
	SELECT COALESCE(SUM(size), 0)
	FROM erasures
	WHERE action = 'SHRED' AND timestamp BETWEEN ? AND ?
	`, start, end).Scan(&total)
	return total, err
}

// ErasureStats holds aggregated statistics
type ErasureStats struct {
	TotalShredded int
	TotalDryRun   int
	TotalSkipped  int
	TotalErrors   int
	BytesErased   int64
	ByAction      map[string]int
	ByErrorKind   map[string]int
	StartDate     time.Time
	EndDate       time.Time
}

// GetErasureStats returns statistics for the last N days
func (d *ErasureDB) GetErasureStats(days int) (*ErasureStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &ErasureStats{StartDate: since, EndDate: now}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'SHRED' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM erasures
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalShredded, &stats.TotalDryRun, &stats.TotalSkipped, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	if stats.BytesErased, err = d.GetBytesErased(since, now); err != nil {
		return nil, err
	}
	if stats.ByAction, err = d.countBy("action", since); err != nil {
		return nil, err
	}
	if stats.ByErrorKind, err = d.countBy("error_kind", since); err != nil {
		return nil, err
	}
	return stats, nil
}

// countBy groups rows since a time by a fixed column name
func (d *ErasureDB) countBy(column string, since time.Time) (map[string]int, error) {
	rows, err := d.db.Query(`
	SELECT `+column+`, COUNT(*)
	FROM erasures
	WHERE timestamp >= ? AND `+column+` IS NOT NULL
	GROUP BY `+column, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// DeleteOldRecords removes records older than the given number of days
func (d *ErasureDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	result, err := d.db.Exec(`DELETE FROM erasures WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *ErasureDB) queryErasures(query string, args ...interface{}) ([]ErasureRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ErasureRecord
	for rows.Next() {
		var r ErasureRecord
		var fileName, errKind, op, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Action, &r.ObjectType, &r.Path,
			&fileName, &r.Size, &r.Passes, &r.DurationMS, &errKind, &op, &errMsg,
		)
		if err != nil {
			return nil, err
		}
		r.FileName = fileName.String
		r.ErrorKind = errKind.String
		r.Operation = op.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}
	return records, rows.Err()
}
