package treasury_test

import (
	"testing"

	"lapak/internal/treasury"

	"github.com/stretchr/testify/assert"
)

func TestHoldAndPayOut(t *testing.T) {
	tr := treasury.NewMemoryTreasury()
	tr.Credit("buyer", 1500)

	err := tr.Hold("buyer", 1000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(500), tr.Balance("buyer"))
	assert.Equal(t, uint64(1000), tr.Held())

	err = tr.PayOut("seller", 1000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1000), tr.Balance("seller"))
	assert.Equal(t, uint64(0), tr.Held())
}

func TestHoldInsufficientBalance(t *testing.T) {
	tr := treasury.NewMemoryTreasury()
	tr.Credit("buyer", 100)

	err := tr.Hold("buyer", 500)
	assert.Error(t, err)
	// Nothing moved.
	assert.Equal(t, uint64(100), tr.Balance("buyer"))
	assert.Equal(t, uint64(0), tr.Held())
}

func TestPayOutExceedsCustody(t *testing.T) {
	tr := treasury.NewMemoryTreasury()
	tr.Credit("buyer", 1000)
	assert.NoError(t, tr.Hold("buyer", 400))

	err := tr.PayOut("seller", 500)
	assert.Error(t, err)
	assert.Equal(t, uint64(400), tr.Held())
	assert.Equal(t, uint64(0), tr.Balance("seller"))
}
