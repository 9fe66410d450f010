package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/turnout-prep/internal/store"
)

// openLedger opens and migrates the run ledger. It returns nil when the
// ledger is disabled.
func openLedger(ctx context.Context) (*store.SQLiteStore, error) {
	if cfg.Ledger.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(cfg.Ledger.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate ledger")
	}
	return st, nil
}
