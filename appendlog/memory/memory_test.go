package memory_test

import (
	"testing"

	"github.com/halvden/eventledger/appendlog/memory"
	"github.com/halvden/eventledger/appendlog/testsuite"
	"github.com/halvden/eventledger/core"
)

func TestSuite(t *testing.T) {
	f := func() (core.AppendLog, func(), error) {
		log := memory.Create()
		return log, func() { log.Close() }, nil
	}
	testsuite.Test(t, f)
}
