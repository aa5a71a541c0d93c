package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"boxstore/internal/ids"
)

// PostgresBackend stores one jsonb row per document. It relies on the
// database for filter, sort and pagination; row locking in Update keeps
// the read-merge-write cycle atomic.
type PostgresBackend struct {
	db     *sql.DB
	policy SecurityPolicy
}

var _ Backend = (*PostgresBackend)(nil)

// NewPostgres wraps an already-connected pool. Schema setup lives in
// internal/database/migration.
func NewPostgres(db *sql.DB, policy SecurityPolicy) *PostgresBackend {
	if policy == nil {
		policy = AllowAll
	}
	return &PostgresBackend{db: db, policy: policy}
}

func (p *PostgresBackend) CheckSecurity(ctx context.Context, boxID, resourceID string, write bool) bool {
	return p.policy(ctx, boxID, resourceID, write)
}

// encodeBody strips the system fields; they live in their own columns
// and are reattached on read.
func encodeBody(doc Document) ([]byte, error) {
	body := make(Document, len(doc))
	for k, v := range doc {
		if k == FieldID || k == FieldCreatedOn {
			continue
		}
		body[k] = v
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return b, nil
}

func decodeBody(id string, createdOn int64, body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document body: %w", err)
	}
	doc[FieldID] = id
	doc[FieldCreatedOn] = float64(createdOn)
	return doc, nil
}

// escapeLike neutralizes LIKE metacharacters so the filter stays a
// literal substring match, same grammar as the in-process backends.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (p *PostgresBackend) List(ctx context.Context, boxID string, opt ListOptions) ([]Document, error) {
	q := `SELECT id, created_on, body FROM store_documents WHERE box_id = $1`
	args := []any{boxID}

	if opt.Query != "" {
		args = append(args, escapeLike(opt.Query))
		q += fmt.Sprintf(` AND body::text ILIKE '%%' || $%d || '%%' ESCAPE '\'`, len(args))
	}

	dir := "DESC"
	if opt.Asc {
		dir = "ASC"
	}
	switch opt.Sort {
	case "", FieldCreatedOn:
		q += fmt.Sprintf(` ORDER BY created_on %s, id %s`, dir, dir)
	case FieldID:
		q += fmt.Sprintf(` ORDER BY id %s`, dir)
	default:
		// jsonb ordering compares numbers numerically and strings
		// lexically; rows missing the field sort last.
		args = append(args, opt.Sort)
		q += fmt.Sprintf(` ORDER BY body -> $%d::text %s NULLS LAST, id %s`, len(args), dir, dir)
	}

	if opt.Limit > 0 {
		args = append(args, opt.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opt.Skip > 0 {
		args = append(args, opt.Skip)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var (
			id        string
			createdOn int64
			body      []byte
		)
		if err := rows.Scan(&id, &createdOn, &body); err != nil {
			return nil, err
		}
		doc, err := decodeBody(id, createdOn, body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, projectFields(doc, opt.Fields))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (p *PostgresBackend) Get(ctx context.Context, boxID, id string) (Document, error) {
	const q = `SELECT created_on, body FROM store_documents WHERE box_id = $1 AND id = $2`

	var (
		createdOn int64
		body      []byte
	)
	err := p.db.QueryRowContext(ctx, q, boxID, id).Scan(&createdOn, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeBody(id, createdOn, body)
}

func (p *PostgresBackend) Save(ctx context.Context, boxID, id string, doc Document) (Document, error) {
	stored, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	body, err := encodeBody(stored)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = ids.New()
	}

	// Upsert keeps the original created_on on replace.
	const q = `
		INSERT INTO store_documents (box_id, id, created_on, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (box_id, id) DO UPDATE SET body = EXCLUDED.body
		RETURNING created_on
	`
	var createdOn int64
	err = p.db.QueryRowContext(ctx, q, boxID, id, time.Now().UnixMilli(), body).Scan(&createdOn)
	if err != nil {
		return nil, err
	}

	stored[FieldID] = id
	stored[FieldCreatedOn] = float64(createdOn)
	return stored, nil
}

func (p *PostgresBackend) Update(ctx context.Context, boxID, id string, patch Document) (Document, error) {
	patch, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const sel = `SELECT created_on, body FROM store_documents WHERE box_id = $1 AND id = $2 FOR UPDATE`

	var (
		createdOn int64
		body      []byte
	)
	err = tx.QueryRowContext(ctx, sel, boxID, id).Scan(&createdOn, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	prev, err := decodeBody(id, createdOn, body)
	if err != nil {
		return nil, err
	}
	merged := make(Document, len(prev)+len(patch))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	merged[FieldID] = id
	merged[FieldCreatedOn] = float64(createdOn)

	newBody, err := encodeBody(merged)
	if err != nil {
		return nil, err
	}

	const upd = `UPDATE store_documents SET body = $3 WHERE box_id = $1 AND id = $2`
	if _, err := tx.ExecContext(ctx, upd, boxID, id, newBody); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return merged, nil
}

func (p *PostgresBackend) Delete(ctx context.Context, boxID, id string) (int, error) {
	const q = `DELETE FROM store_documents WHERE box_id = $1 AND id = $2`

	res, err := p.db.ExecContext(ctx, q, boxID, id)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
