package myvault

import (
	"context"

	"github.com/digimenu/checkoutflow/lib/mystore"
)

// A vault keeps short-lived secrets (bearer tokens) out of the regular
// entity records: the session blob that is replicated to storage never
// contains the credential itself.

type VaultReader[T any] interface {
	Get(c context.Context, uid string) (T, bool, error)
}

//go:generate mockgen -source=api.go -package myvault -destination vault_mock.go VaultReadWriter
type VaultReadWriter[T any] interface {
	Get(c context.Context, uid string) (T, bool, error)
	Put(c context.Context, uid string, value T) error
	Delete(c context.Context, uid string) error
}

func New[T any](c context.Context) (VaultReadWriter[T], func(), error) {
	return mystore.New[T](c)
}
