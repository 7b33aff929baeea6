package ports

import "context"

// Entity is the capability set the generic repository requires of a
// persistable record: a stable string identity key. Serialization is owned
// by the concrete storage adapter.
type Entity interface {
	EntityID() string
}

// Repository is a uniform persistence facade over a single entity type,
// decoupling callers from the concrete storage engine.
//
// Add, Update and Delete return the store's accept/reject outcome as a bool:
// false means the store refused the write (constraint violation, missing
// record) without translating it into a domain error kind. The error return
// is reserved for infrastructure failures (store unreachable, codec failure).
type Repository[T Entity] interface {
	Add(ctx context.Context, entity T) (bool, error)
	Update(ctx context.Context, entity T) (bool, error)
	Delete(ctx context.Context, entity T) (bool, error)
	// GetByID returns the entity and whether it exists. Absence is not an error.
	GetByID(ctx context.Context, id string) (T, bool, error)
	// GetAll returns a lazy cursor over all entities. Filtering and
	// pagination belong to the caller, applied while streaming.
	GetAll(ctx context.Context) (Cursor[T], error)
}

// Cursor is a lazy, finite enumeration over entities. A fresh cursor is
// obtained from Repository.GetAll on each call, so enumeration is restartable.
type Cursor[T any] interface {
	// Next advances the cursor, reporting whether an item is available.
	Next(ctx context.Context) bool
	// Item returns the current entity. Valid only after Next returned true.
	Item() T
	// Err returns the first error encountered while iterating, if any.
	Err() error
	Close(ctx context.Context) error
}
