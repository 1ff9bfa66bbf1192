package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/cpctprep/internal/model"
)

const resultColumns = `id, passage_id, candidate, exam, lang, source, started_at, ended_at, duration_ms,
	typed_text, reference_text, correct_words, incorrect_words, missing_words,
	gross_wpm, net_wpm, accuracy, passed`

// InsertResult stores a scored result and its per-word stats.
func (s *Store) InsertResult(ctx context.Context, r model.Result, words []model.WordStats) (id string, err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO results (`+resultColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.PassageID,
		r.Candidate,
		r.Exam,
		r.Lang,
		r.Source,
		formatTime(r.StartedAt),
		formatTime(r.EndedAt),
		r.DurationMs,
		r.TypedText,
		r.ReferenceText,
		r.CorrectWords,
		r.IncorrectWords,
		r.MissingWords,
		r.GrossWPM,
		r.NetWPM,
		r.Accuracy,
		r.Passed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrConflict
		}
		return "", err
	}

	if len(words) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO result_word_stats (result_id, word, correct, incorrect) VALUES (?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, ws := range words {
			if _, err = stmt.ExecContext(ctx, r.ID, ws.Word, ws.Correct, ws.Incorrect); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return r.ID, nil
}

// GetResult loads a full result by ID.
func (s *Store) GetResult(ctx context.Context, id string) (model.Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id = ?`, id)
	var r model.Result
	var startedAt, endedAt string
	err := row.Scan(&r.ID, &r.PassageID, &r.Candidate, &r.Exam, &r.Lang, &r.Source, &startedAt, &endedAt, &r.DurationMs,
		&r.TypedText, &r.ReferenceText, &r.CorrectWords, &r.IncorrectWords, &r.MissingWords,
		&r.GrossWPM, &r.NetWPM, &r.Accuracy, &r.Passed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Result{}, ErrNotFound
		}
		return model.Result{}, err
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return model.Result{}, err
	}
	if r.EndedAt, err = parseTime(endedAt); err != nil {
		return model.Result{}, err
	}
	return r, nil
}

// ListResults returns result aggregates filtered by stats config, oldest first.
func (s *Store) ListResults(ctx context.Context, cfg model.StatsConfig) ([]model.ResultAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Lang != "" {
		clauses = append(clauses, "lang = ?")
		args = append(args, cfg.Lang)
	}
	if cfg.Exam != "" {
		clauses = append(clauses, "exam = ?")
		args = append(args, cfg.Exam)
	}
	if cfg.Candidate != "" {
		clauses = append(clauses, "candidate = ?")
		args = append(args, cfg.Candidate)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT id, candidate, exam, lang, ended_at, duration_ms, gross_wpm, net_wpm, accuracy, passed
		FROM results
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var results []model.ResultAggregate
	for rows.Next() {
		var agg model.ResultAggregate
		var endedAt string
		if err := rows.Scan(&agg.ResultID, &agg.Candidate, &agg.Exam, &agg.Lang, &endedAt, &agg.DurationMs,
			&agg.GrossWPM, &agg.NetWPM, &agg.Accuracy, &agg.Passed); err != nil {
			return nil, err
		}
		parsed, err := parseTime(endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		results = append(results, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(results) > cfg.Last {
		results = results[len(results)-cfg.Last:]
	}
	return results, nil
}

// GetWeakWords aggregates word stats over the most recent results.
func (s *Store) GetWeakWords(ctx context.Context, window int, lang string) ([]model.WordAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_results AS (
		SELECT id FROM results
		WHERE (? = '' OR lang = ?)
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT ws.word, SUM(ws.correct) AS correct, SUM(ws.incorrect) AS incorrect
	FROM result_word_stats ws
	JOIN recent_results r ON r.id = ws.result_id
	GROUP BY ws.word`

	rows, err := s.db.QueryContext(ctx, query, lang, lang, window)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)
	return scanWordAggregates(rows)
}

// ListWordAggregatesForResults aggregates per-word stats across results.
func (s *Store) ListWordAggregatesForResults(ctx context.Context, resultIDs []string) ([]model.WordAggregate, error) {
	if len(resultIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(resultIDs))
	for i, id := range resultIDs {
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT word, SUM(correct) AS correct, SUM(incorrect) AS incorrect
		FROM result_word_stats
		WHERE result_id IN (%s)
		GROUP BY word`, placeholders(len(resultIDs)))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)
	return scanWordAggregates(rows)
}

// ListWordStatsForResults returns per-result stats for selected words.
func (s *Store) ListWordStatsForResults(ctx context.Context, resultIDs, words []string) (map[string]map[string]model.WordAggregate, error) {
	if len(resultIDs) == 0 || len(words) == 0 {
		return map[string]map[string]model.WordAggregate{}, nil
	}
	args := make([]any, 0, len(resultIDs)+len(words))
	for _, id := range resultIDs {
		args = append(args, id)
	}
	for _, w := range words {
		args = append(args, w)
	}
	query := fmt.Sprintf(`SELECT result_id, word, correct, incorrect
		FROM result_word_stats
		WHERE result_id IN (%s) AND word IN (%s)`, placeholders(len(resultIDs)), placeholders(len(words)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	out := map[string]map[string]model.WordAggregate{}
	for rows.Next() {
		var resultID string
		var agg model.WordAggregate
		if err := rows.Scan(&resultID, &agg.Word, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		if _, ok := out[resultID]; !ok {
			out[resultID] = map[string]model.WordAggregate{}
		}
		out[resultID][agg.Word] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanWordAggregates(rows *sql.Rows) ([]model.WordAggregate, error) {
	var out []model.WordAggregate
	for rows.Next() {
		var agg model.WordAggregate
		if err := rows.Scan(&agg.Word, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
