package query

import (
	"context"
	"fmt"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Page es el resultado de una lectura paginada.
type Page[T any] struct {
	Items      []T
	HasMore    bool
	NextCursor string // "" cuando no hay más páginas
	Success    bool
}

// FailedPage es la página que se devuelve cuando la lectura falla.
func FailedPage[T any]() Page[T] {
	return Page[T]{Items: make([]T, 0)}
}

// FetchFunc lee como mucho limit filas estrictamente posteriores a after.
type FetchFunc[T any] func(ctx context.Context, after *Cursor, limit int) ([]T, error)

// CursorFunc construye el cursor que apunta a un elemento.
type CursorFunc[T any] func(item T) Cursor

// NormalizeLimit acota el límite al rango [1, MaxLimit] usando DefaultLimit si no viene.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Paginate pide limit+1 filas para saber si hay más sin un COUNT aparte,
// recorta a limit y genera el cursor a partir del último elemento servido.
// Un fallo de lectura no se reintenta: devuelve una página fallida y el error.
func Paginate[T any](ctx context.Context, after *Cursor, limit int, fetch FetchFunc[T], cursorOf CursorFunc[T]) (Page[T], error) {
	limit = NormalizeLimit(limit)

	items, err := fetch(ctx, after, limit+1)
	if err != nil {
		return FailedPage[T](), fmt.Errorf("fetch failed: %w", err)
	}

	page := Page[T]{Items: items, Success: true}
	if len(items) > limit {
		page.HasMore = true
		page.Items = items[:limit]
		page.NextCursor = cursorOf(page.Items[limit-1]).Encode()
	}

	if page.Items == nil {
		page.Items = make([]T, 0)
	}
	return page, nil
}

// CollectAll recorre todas las páginas con el tamaño máximo y devuelve todos
// los elementos en orden.
func CollectAll[T any](ctx context.Context, fetch FetchFunc[T], cursorOf CursorFunc[T]) ([]T, error) {
	all := make([]T, 0)
	var after *Cursor
	for {
		page, err := Paginate(ctx, after, MaxLimit, fetch, cursorOf)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if !page.HasMore {
			return all, nil
		}
		if after = DecodeCursor(page.NextCursor); after == nil {
			return nil, fmt.Errorf("invalid continuation cursor %q", page.NextCursor)
		}
	}
}
