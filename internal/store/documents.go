package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/tempo/internal/remote"
)

var _ remote.Documents = (*Store)(nil)

func (s *Store) Create(ctx context.Context, c remote.Collection, doc remote.Document) (remote.Document, error) {
	if !c.Valid() {
		return remote.Document{}, remote.ErrInvalidCollection
	}
	fields, err := remote.NormalizeFields(doc.Fields)
	if err != nil {
		return remote.Document{}, err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return remote.Document{}, fmt.Errorf("encode document: %w", err)
	}
	doc.ID = uuid.NewString()
	doc.Fields = fields
	doc.CreatedAt = s.now().UTC().Truncate(time.Second)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, user_id, year, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, string(c), doc.UserID, doc.Year, string(data), doc.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return remote.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

func (s *Store) List(ctx context.Context, c remote.Collection, f remote.Filter) ([]remote.Document, error) {
	if !c.Valid() {
		return nil, remote.ErrInvalidCollection
	}
	query := `SELECT id, user_id, year, data, created_at FROM documents WHERE collection = ? AND user_id = ?`
	args := []any{string(c), f.UserID}
	if f.Year != 0 {
		query += ` AND year = ?`
		args = append(args, f.Year)
	}
	query += ` ORDER BY seq DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []remote.Document
	for rows.Next() {
		var d remote.Document
		var data, createdAt string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Year, &data, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &d.Fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Update merges fields into the stored JSON with json_patch. A "year" field
// also moves the document's year column.
func (s *Store) Update(ctx context.Context, c remote.Collection, userID, id string, fields map[string]any) error {
	if !c.Valid() {
		return remote.ErrInvalidCollection
	}
	fields, err := remote.NormalizeFields(fields)
	if err != nil {
		return err
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	query := `UPDATE documents SET data = json_patch(data, ?)`
	args := []any{string(patch)}
	if y, ok := fields["year"].(float64); ok {
		query += `, year = ?`
		args = append(args, int(y))
	}
	query += ` WHERE collection = ? AND user_id = ? AND id = ?`
	args = append(args, string(c), userID, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return expectRow(res)
}

func (s *Store) Delete(ctx context.Context, c remote.Collection, userID, id string) error {
	if !c.Valid() {
		return remote.ErrInvalidCollection
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND user_id = ? AND id = ?`,
		string(c), userID, id,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return expectRow(res)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectRow(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return remote.ErrNotFound
	}
	return nil
}
