package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

const passageColumns = `id, title, lang, exam, text, word_count, created_at, updated_at`

// CreatePassage stores a new passage, assigning an ID and timestamps.
func (s *Store) CreatePassage(ctx context.Context, p model.Passage) (model.Passage, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.WordCount = len(typing.Tokenize(p.Text))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passages (`+passageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Lang, p.Exam, p.Text, p.WordCount, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Passage{}, ErrConflict
		}
		return model.Passage{}, err
	}
	return p, nil
}

// GetPassage loads a passage by ID.
func (s *Store) GetPassage(ctx context.Context, id string) (model.Passage, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passageColumns+` FROM passages WHERE id = ?`, id)
	return scanPassage(row)
}

// ListPassages returns passages matching the filter ordered by title.
func (s *Store) ListPassages(ctx context.Context, filter model.PassageFilter) ([]model.Passage, error) {
	where, args := passageWhere(filter)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM passages WHERE %s ORDER BY title ASC, created_at ASC`, passageColumns, where), args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var out []model.Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RandomPassage picks one passage matching the filter.
func (s *Store) RandomPassage(ctx context.Context, filter model.PassageFilter) (model.Passage, error) {
	where, args := passageWhere(filter)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM passages WHERE %s ORDER BY RANDOM() LIMIT 1`, passageColumns, where), args...)
	return scanPassage(row)
}

// UpdatePassage replaces the editable fields of an existing passage.
func (s *Store) UpdatePassage(ctx context.Context, p model.Passage) (model.Passage, error) {
	existing, err := s.GetPassage(ctx, p.ID)
	if err != nil {
		return model.Passage{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.WordCount = len(typing.Tokenize(p.Text))
	_, err = s.db.ExecContext(ctx,
		`UPDATE passages SET title = ?, lang = ?, exam = ?, text = ?, word_count = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Lang, p.Exam, p.Text, p.WordCount, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return model.Passage{}, err
	}
	return p, nil
}

// DeletePassage removes a passage. Results referencing it are kept.
func (s *Store) DeletePassage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM passages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func passageWhere(filter model.PassageFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Lang != "" {
		clauses = append(clauses, "lang = ?")
		args = append(args, filter.Lang)
	}
	if filter.Exam != "" {
		clauses = append(clauses, "exam = ?")
		args = append(args, filter.Exam)
	}
	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassage(row rowScanner) (model.Passage, error) {
	var p model.Passage
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Title, &p.Lang, &p.Exam, &p.Text, &p.WordCount, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Passage{}, ErrNotFound
		}
		return model.Passage{}, err
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Passage{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Passage{}, err
	}
	return p, nil
}
