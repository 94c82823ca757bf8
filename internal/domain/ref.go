package domain

import (
	"context"
	"encoding/json"
)

// Ref points at another record either by id only or with the record already
// loaded. Callers decide which form they need and call Resolve explicitly.
type Ref[T any] struct {
	id       string
	expanded *T
}

// Reference builds an id-only Ref.
func Reference[T any](id string) Ref[T] {
	return Ref[T]{id: id}
}

// Expanded builds a Ref that carries the full record.
func Expanded[T any](id string, v *T) Ref[T] {
	return Ref[T]{id: id, expanded: v}
}

func (r Ref[T]) ID() string { return r.id }

func (r Ref[T]) IsExpanded() bool { return r.expanded != nil }

func (r Ref[T]) Value() (*T, bool) {
	return r.expanded, r.expanded != nil
}

// Reference drops the expanded record, keeping the id.
func (r Ref[T]) Reference() Ref[T] {
	return Ref[T]{id: r.id}
}

// Resolve returns an expanded Ref, loading the record when only the id is known.
func (r Ref[T]) Resolve(ctx context.Context, load func(ctx context.Context, id string) (*T, error)) (Ref[T], error) {
	if r.expanded != nil {
		return r, nil
	}
	v, err := load(ctx, r.id)
	if err != nil {
		return r, err
	}
	return Expanded(r.id, v), nil
}

// MarshalJSON writes the full record when expanded and {"id": ...} otherwise,
// so clients read the id from the same field in both forms.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.expanded != nil {
		return json.Marshal(r.expanded)
	}
	return json.Marshal(struct {
		ID string `json:"id"`
	}{ID: r.id})
}
