package remote

import (
	"context"
	"encoding/json"
	"fmt"
)

// Repo maps a JSON-tagged model type onto one collection. The model's "id"
// and "userId" properties are carried by the Document itself.
type Repo[T any] struct {
	docs Documents
	coll Collection
}

func NewRepo[T any](docs Documents, coll Collection) *Repo[T] {
	return &Repo[T]{docs: docs, coll: coll}
}

type yearScoped interface {
	DocYear() int
}

// Create stores v for userID and returns it as the store minted it.
func (r *Repo[T]) Create(ctx context.Context, userID string, v T) (T, error) {
	var zero T
	fields, err := EncodeFields(v)
	if err != nil {
		return zero, err
	}
	doc := Document{UserID: userID, Fields: fields}
	if y, ok := any(v).(yearScoped); ok {
		doc.Year = y.DocYear()
	}
	created, err := r.docs.Create(ctx, r.coll, doc)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", r.coll, err)
	}
	return Decode[T](created)
}

func (r *Repo[T]) List(ctx context.Context, f Filter) ([]T, error) {
	docs, err := r.docs.List(ctx, r.coll, f)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.coll, err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Repo[T]) Update(ctx context.Context, userID, id string, fields map[string]any) error {
	if err := r.docs.Update(ctx, r.coll, userID, id, fields); err != nil {
		return fmt.Errorf("update %s %s: %w", r.coll, id, err)
	}
	return nil
}

func (r *Repo[T]) Delete(ctx context.Context, userID, id string) error {
	if err := r.docs.Delete(ctx, r.coll, userID, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", r.coll, id, err)
	}
	return nil
}

// EncodeFields flattens v into document fields.
func EncodeFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	delete(fields, "id")
	delete(fields, "userId")
	return fields, nil
}

// Decode rebuilds a model from a document.
func Decode[T any](d Document) (T, error) {
	var v T
	merged := make(map[string]any, len(d.Fields)+3)
	for k, val := range d.Fields {
		merged[k] = val
	}
	merged["id"] = d.ID
	merged["userId"] = d.UserID
	if _, ok := merged["createdAt"]; !ok && !d.CreatedAt.IsZero() {
		merged["createdAt"] = d.CreatedAt
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return v, fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return v, nil
}

// NormalizeFields round-trips fields through JSON so values have the types a
// decoded document would have (numbers as float64, days as strings).
func NormalizeFields(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("normalize fields: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize fields: %w", err)
	}
	return out, nil
}
