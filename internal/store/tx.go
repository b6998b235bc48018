// AngelaMos | 2026
// tx.go

package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/directory-api/internal/auth"
	"github.com/carterperez-dev/templates/directory-api/internal/core"
	"github.com/carterperez-dev/templates/directory-api/internal/user"
	"github.com/carterperez-dev/templates/directory-api/internal/verification"
)

// TxManager opens one SQL transaction and hands out the user and
// verification stores bound to it.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) InTx(
	ctx context.Context,
	fn func(stores auth.TxStores) error,
) error {
	ctx, span := core.StartSpan(ctx, "store.tx")
	defer span.End()

	err := core.InTx(ctx, m.db, func(tx *sqlx.Tx) error {
		return fn(auth.TxStores{
			Users: user.NewService(user.NewRepository(tx)),
			Codes: verification.NewRepository(tx),
		})
	})
	if err != nil {
		core.SetSpanError(ctx, err)
	}
	return err
}

var _ auth.TxManager = (*TxManager)(nil)
