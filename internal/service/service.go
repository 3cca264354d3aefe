// Package service implements the room, secret, membership and audit
// lifecycles on top of the model store interfaces. Services never touch
// plaintext secret values; those stay between the API layer and the vault.
package service

import "context"

// TxRunner executes fn inside a storage transaction. Every store call made
// with the context fn receives joins that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
