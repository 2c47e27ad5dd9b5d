// Package treasury keeps the account book backing the escrow ledger:
// per-principal balances plus a single escrow custody total. It stands in
// for the external settlement system; the escrow service only ever calls
// Hold and PayOut.
package treasury

import (
	"fmt"
	"sync"
)

// MemoryTreasury is an in-memory account book. Deposits held in escrow are
// tracked separately from free balances so the custody total is auditable.
type MemoryTreasury struct {
	balances map[string]uint64
	held     uint64
	mu       sync.Mutex
}

// NewMemoryTreasury creates an empty treasury.
func NewMemoryTreasury() *MemoryTreasury {
	return &MemoryTreasury{
		balances: make(map[string]uint64),
	}
}

// Credit funds an account. Used to seed buyer balances.
func (t *MemoryTreasury) Credit(addr string, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[addr] += amount
}

// Balance returns the free (non-escrowed) balance of an account.
func (t *MemoryTreasury) Balance(addr string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[addr]
}

// Held returns the total amount currently in escrow custody.
func (t *MemoryTreasury) Held() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held
}

// Hold moves amount from the account's free balance into escrow custody.
func (t *MemoryTreasury) Hold(from string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balances[from] < amount {
		return fmt.Errorf("account %s has %d, cannot hold %d", from, t.balances[from], amount)
	}
	t.balances[from] -= amount
	t.held += amount
	return nil
}

// PayOut moves amount from escrow custody to the account's free balance.
func (t *MemoryTreasury) PayOut(to string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.held < amount {
		return fmt.Errorf("escrow holds %d, cannot pay out %d", t.held, amount)
	}
	t.held -= amount
	t.balances[to] += amount
	return nil
}
