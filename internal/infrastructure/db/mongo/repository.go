package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/teqbay/accounts-api/internal/core/ports"
)

// Repository is the MongoDB-backed generic repository. Each instance is
// bound to one collection; entities are (de)serialized through their bson
// tags. Every operation is a single-document write, atomic at the store.
type Repository[T ports.Entity] struct {
	coll *mongo.Collection
}

// NewRepository binds a generic repository to the named collection.
func NewRepository[T ports.Entity](db *mongo.Database, collection string) *Repository[T] {
	return &Repository[T]{coll: db.Collection(collection)}
}

// Add inserts the entity. A duplicate key is the store rejecting the write:
// reported as false with no error, per the repository contract.
func (r *Repository[T]) Add(ctx context.Context, entity T) (bool, error) {
	if _, err := r.coll.InsertOne(ctx, entity); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert entity: %w", err)
	}
	return true, nil
}

// Update replaces the stored document identified by the entity's key.
// Returns false when no document matched.
func (r *Repository[T]) Update(ctx context.Context, entity T) (bool, error) {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": entity.EntityID()}, entity)
	if err != nil {
		return false, fmt.Errorf("update entity: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// Delete removes the document identified by the entity's key. Returns false
// when nothing was deleted.
func (r *Repository[T]) Delete(ctx context.Context, entity T) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": entity.EntityID()})
	if err != nil {
		return false, fmt.Errorf("delete entity: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var entity T
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&entity); err != nil {
		if err == mongo.ErrNoDocuments {
			return entity, false, nil
		}
		return entity, false, fmt.Errorf("find entity: %w", err)
	}
	return entity, true, nil
}

// GetAll opens a fresh cursor over the whole collection. Enumeration is lazy;
// the caller streams, filters and paginates without materializing the set.
func (r *Repository[T]) GetAll(ctx context.Context) (ports.Cursor[T], error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return &cursor[T]{cur: cur}, nil
}

type cursor[T any] struct {
	cur  *mongo.Cursor
	item T
	err  error
}

func (c *cursor[T]) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		c.err = c.cur.Err()
		return false
	}
	var item T
	if err := c.cur.Decode(&item); err != nil {
		c.err = fmt.Errorf("decode entity: %w", err)
		return false
	}
	c.item = item
	return true
}

func (c *cursor[T]) Item() T { return c.item }

func (c *cursor[T]) Err() error { return c.err }

func (c *cursor[T]) Close(ctx context.Context) error { return c.cur.Close(ctx) }
