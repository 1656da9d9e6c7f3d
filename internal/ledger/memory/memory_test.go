package memory

import (
	"testing"

	"chitieu/internal/ledger"
	"chitieu/internal/ledger/ledgertest"
)

func TestStore(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Ledger {
		return New()
	})
}
