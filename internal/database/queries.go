package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docsum/internal/domain"
)

const summaryColumns = `id, kind, source_ref, input_key, summary, content_info,
	document_count, summary_words, source_words, model, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (d *Database) InsertSummary(ctx context.Context, s *domain.Summary) error {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return errors.New("summary ID is empty")
	}

	query := `insert into summaries (` + summaryColumns + `)
	values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		s.ID,
		string(s.Kind),
		s.SourceRef,
		s.InputKey,
		s.Text,
		string(s.ContentInfo),
		s.DocumentCount,
		s.SummaryWords,
		s.SourceWords,
		s.Model,
		s.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("execute insert: %w", err)
	}

	return nil
}

func (d *Database) GetSummary(ctx context.Context, id string) (*domain.Summary, error) {
	query := `select ` + summaryColumns + ` from summaries where id = ?`

	s, err := scanSummary(d.db.QueryRowContext(ctx, query, strings.TrimSpace(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	return s, nil
}

// FindRecentSummary returns the newest summary for inputKey created after
// notBefore.
func (d *Database) FindRecentSummary(
	ctx context.Context,
	inputKey string,
	notBefore time.Time,
) (*domain.Summary, error) {
	query := `select ` + summaryColumns + `
	from summaries
	where input_key = ? and created_at >= ?
	order by created_at desc
	limit 1`

	s, err := scanSummary(d.db.QueryRowContext(ctx, query, inputKey, notBefore.UTC().UnixMilli()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	return s, nil
}

func (d *Database) ListSummaries(ctx context.Context, limit int) ([]domain.Summary, error) {
	query := `select ` + summaryColumns + `
	from summaries
	order by created_at desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"limit", limit,
				"operation", "ListSummaries")
		}
	}()

	var summaries []domain.Summary
	for rows.Next() {
		s, scanErr := scanSummary(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan row: %w", scanErr)
		}

		summaries = append(summaries, *s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return summaries, nil
}

func (d *Database) DeleteSummariesBefore(ctx context.Context, before time.Time) (int64, error) {
	query := "delete from summaries where created_at < ?"

	res, err := d.db.ExecContext(ctx, query, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("execute delete: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return n, nil
}

func scanSummary(row rowScanner) (*domain.Summary, error) {
	var (
		s           domain.Summary
		kind        string
		contentInfo string
		createdAtMs int64
	)

	if err := row.Scan(
		&s.ID,
		&kind,
		&s.SourceRef,
		&s.InputKey,
		&s.Text,
		&contentInfo,
		&s.DocumentCount,
		&s.SummaryWords,
		&s.SourceWords,
		&s.Model,
		&createdAtMs,
	); err != nil {
		return nil, err
	}

	s.Kind = domain.SourceKind(kind)
	s.ContentInfo = domain.ContentInfo(contentInfo)
	s.CreatedAt = time.UnixMilli(createdAtMs).UTC()

	return &s, nil
}
