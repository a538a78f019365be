// Package store holds the contracts shared by BenchSim's SQLite tables:
// list filters, the table interfaces and the sentinel errors.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConnection indicates the database file could not be reached.
	ErrConnection = errors.New("store connection error")

	// ErrInvalidKey indicates an unknown setting key or filter field.
	ErrInvalidKey = errors.New("invalid key")
)

// NotFoundError wraps ErrNotFound with the missing row.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a typed not found error.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is a database file that can be probed and closed.
type Store interface {
	Ping(ctx context.Context) error
	Path() string
	Close() error
}

// Reader provides read access to one table.
type Reader[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, filter Filter) ([]*T, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

// Table is an append-only table that can be emptied.
type Table[T any] interface {
	Reader[T]
	Add(ctx context.Context, row T) error
	Clear(ctx context.Context) error
}

// Filter selects rows for List and Count.
type Filter struct {
	Limit     int            // 0 means no limit
	Offset    int            // rows to skip
	OrderDesc bool           // newest first
	Where     map[string]any // field equality conditions
}

// DefaultFilter returns the newest 20 rows.
func DefaultFilter() Filter {
	return Filter{Limit: 20, OrderDesc: true}
}

// WithLimit returns a copy of the filter with a new limit.
func (f Filter) WithLimit(n int) Filter {
	f.Limit = n
	return f
}

// WithOffset returns a copy of the filter with a new offset.
func (f Filter) WithOffset(n int) Filter {
	f.Offset = n
	return f
}

// WithWhere returns a copy of the filter with an added condition.
func (f Filter) WithWhere(field string, value any) Filter {
	where := make(map[string]any, len(f.Where)+1)
	for k, v := range f.Where {
		where[k] = v
	}
	where[field] = value
	f.Where = where
	return f
}

// WhereSQL renders the conditions as a " WHERE ..." clause. columns maps
// the field names a caller may filter on to SQL columns; any other field
// is rejected with ErrInvalidKey. Conditions are sorted by field so the
// clause is stable.
func (f Filter) WhereSQL(columns map[string]string) (string, []any, error) {
	if len(f.Where) == 0 {
		return "", nil, nil
	}
	fields := make([]string, 0, len(f.Where))
	for k := range f.Where {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	conds := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, k := range fields {
		col, ok := columns[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: filter on %q", ErrInvalidKey, k)
		}
		conds = append(conds, col+" = ?")
		args = append(args, f.Where[k])
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// PageSQL renders ORDER BY, LIMIT and OFFSET for the given sort column.
// id breaks ties so pages never overlap.
func (f Filter) PageSQL(orderBy string) (string, []any) {
	clause := " ORDER BY " + orderBy
	if f.OrderDesc {
		clause += " DESC, id DESC"
	} else {
		clause += ", id"
	}
	if f.Limit <= 0 {
		return clause, nil
	}
	return clause + " LIMIT ? OFFSET ?", []any{f.Limit, f.Offset}
}
