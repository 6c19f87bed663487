package bbolt_test

import (
	"path/filepath"
	"testing"

	"github.com/halvden/eventledger/appendlog/bbolt"
	"github.com/halvden/eventledger/appendlog/testsuite"
	"github.com/halvden/eventledger/core"
)

func TestSuite(t *testing.T) {
	f := func() (core.AppendLog, func(), error) {
		dbFile := filepath.Join(t.TempDir(), "ledger.db")
		log := bbolt.MustOpen(dbFile)
		return log, func() { log.Close() }, nil
	}
	testsuite.Test(t, f)
}
