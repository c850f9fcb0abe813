package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StartSection upserts the section record and stamps its start time.
// Re-entering a section (resumed WAIT_FOR_DATA) refreshes the stamp.
func (s *SQLiteStore) StartSection(ctx context.Context, runID string, section Section) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_sections (run_id, section, started_at) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, section) DO UPDATE SET started_at = excluded.started_at`,
		runID, section, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to start section %s: %w", section, err)
	}
	return nil
}

// AppendLogLine appends one timestamped output line to the section log.
func (s *SQLiteStore) AppendLogLine(ctx context.Context, runID string, section Section, line string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO section_logs (run_id, section, ts, line) VALUES (?, ?, ?, ?)`,
		runID, section, time.Now().UTC(), line)
	if err != nil {
		return fmt.Errorf("failed to append log line: %w", err)
	}
	return nil
}

// EndSection stamps the section end time and its terminal status in a
// single statement.
func (s *SQLiteStore) EndSection(ctx context.Context, runID string, section Section, status SectionStatus) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE run_sections SET ended_at = ?, status = ? WHERE run_id = ? AND section = ?`,
		time.Now().UTC(), status, runID, section)
	if err != nil {
		return fmt.Errorf("failed to end section %s: %w", section, err)
	}
	return nil
}

// loadSections assembles the section map with logs for one run.
func (s *SQLiteStore) loadSections(ctx context.Context, runID string) (map[Section]*SectionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT section, started_at, ended_at, status FROM run_sections WHERE run_id = ?`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sections: %w", err)
	}
	defer rows.Close()

	sections := make(map[Section]*SectionRecord)
	for rows.Next() {
		var (
			name    Section
			rec     SectionRecord
			endedAt sql.NullTime
			status  sql.NullString
		)
		if err := rows.Scan(&name, &rec.Start, &endedAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		if endedAt.Valid {
			rec.End = &endedAt.Time
		}
		if status.Valid {
			rec.Status = SectionStatus(status.String)
		}
		sections[name] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logRows, err := s.db.QueryContext(ctx,
		`SELECT section, ts, line FROM section_logs WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load section logs: %w", err)
	}
	defer logRows.Close()

	for logRows.Next() {
		var (
			name Section
			line LogLine
		)
		if err := logRows.Scan(&name, &line.Timestamp, &line.Line); err != nil {
			return nil, fmt.Errorf("failed to scan log line: %w", err)
		}
		if rec, ok := sections[name]; ok {
			rec.Log = append(rec.Log, line)
		}
	}
	if len(sections) == 0 {
		return nil, logRows.Err()
	}
	return sections, logRows.Err()
}
