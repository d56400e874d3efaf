package lending

import (
	"context"

	"github.com/MrSuraphong/library-testing/internal/model"
)

// History returns the user's full loan history, most recent first. Users
// with no history get an empty slice, never an error.
func (e *Engine) History(ctx context.Context, userID string) ([]model.Transaction, error) {
	txs, err := e.ledger.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}

// ActiveLoans returns the user's unreturned loans, most recent first.
func (e *Engine) ActiveLoans(ctx context.Context, userID string) ([]model.Transaction, error) {
	txs, err := e.ledger.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}
