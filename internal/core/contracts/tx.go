package contracts

import "context"

// Transactor runs fn inside one storage transaction. Repositories called with
// the derived context join that transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
