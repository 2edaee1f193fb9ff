package mystore

import (
	"context"
	"os"
)

type ctxTransactionKey struct{}

type Filter struct {
	Field   string
	Compare string
	Value   any
}

//go:generate mockgen -source=api.go -package mystore -destination store_mock.go Store
type Store[T any] interface {
	RunInTransaction(c context.Context, f func(c context.Context) error) error
	Put(c context.Context, uid string, value T) error
	Get(c context.Context, uid string) (T, bool, error)
	Delete(c context.Context, uid string) error
	List(c context.Context) ([]T, error)
	Query(c context.Context, filters []Filter, orderByField string) ([]T, error)
}

// New selects the storage backend based on the environment:
// Google Cloud Datastore when running on GCP, redis when a shared cache is
// configured, bbolt for durable single-node setups, in-memory otherwise.
func New[T any](c context.Context) (Store[T], func(), error) {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		return newGcloudStore[T](c)
	}

	if os.Getenv("REDIS_ADDR") != "" {
		return newRedisStore[T](c, os.Getenv("REDIS_ADDR"))
	}

	if os.Getenv("BOLT_DB_FILE") != "" {
		return newBoltStore[T](c, os.Getenv("BOLT_DB_FILE"))
	}

	return newInMemoryStore[T](c)
}
