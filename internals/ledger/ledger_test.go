package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wsb.com/wledger/internals/helpers"
)

func fixedClock() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		t = t.Add(1500 * time.Millisecond)
		return t
	}
}

func TestNewLedgerHasGenesis(t *testing.T) {
	l := New()

	require.Equal(t, 1, l.Len())
	genesis, err := l.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, int64(1), genesis.Index)
	assert.Equal(t, GenesisProof, genesis.Proof)
	assert.Equal(t, GenesisPreviousHash, genesis.PreviousHash)
	assert.Empty(t, genesis.Transactions)
	assert.Empty(t, l.Pending())
}

func TestQueueTransactionReturnsNextIndex(t *testing.T) {
	l := New()

	assert.Equal(t, int64(2), l.QueueTransaction("A", "B", 5))
	assert.Equal(t, int64(2), l.QueueTransaction("C", "D", 10))
	assert.Len(t, l.Pending(), 2)

	l.SealBlock(12345, "")
	assert.Equal(t, int64(3), l.QueueTransaction("E", "F", 1))
}

func TestSealBlockScenario(t *testing.T) {
	l := New()
	l.QueueTransaction("A", "B", 5)
	l.QueueTransaction("C", "D", 10)

	block := l.SealBlock(100, "1")

	assert.Equal(t, int64(2), block.Index)
	assert.Equal(t, int64(100), block.Proof)
	assert.Equal(t, "1", block.PreviousHash)
	assert.Equal(t, []helpers.Transaction{
		{Sender: "A", Recipient: "B", Amount: 5},
		{Sender: "C", Recipient: "D", Amount: 10},
	}, block.Transactions)
	assert.Empty(t, l.Pending())
	assert.Equal(t, 2, l.Len())
}

func TestSealBlockKeepsQueueOrder(t *testing.T) {
	l := New()
	var want []helpers.Transaction
	for i := 0; i < 50; i++ {
		tx := helpers.Transaction{
			Sender:    fmt.Sprintf("s%d", i),
			Recipient: fmt.Sprintf("r%d", i),
			Amount:    float64(i),
		}
		want = append(want, tx)
		l.QueueTransaction(tx.Sender, tx.Recipient, tx.Amount)
	}

	block := l.SealBlock(1, "")
	assert.Equal(t, want, block.Transactions)
	assert.Empty(t, l.Pending())
}

func TestSealBlockLinksToHead(t *testing.T) {
	l := newWithClock(fixedClock())
	for i := 0; i < 4; i++ {
		l.QueueTransaction("A", "B", float64(i))
		l.SealBlock(int64(i), "")
	}

	chain := l.Chain()
	require.Len(t, chain, 5)
	for i := 1; i < len(chain); i++ {
		assert.Equal(t, int64(i+1), chain[i].Index)
		assert.Equal(t, CanonicalHash(chain[i-1]), chain[i].PreviousHash)
	}
	assert.NoError(t, VerifyLinks(chain))
}

func TestSealedBlockIsSnapshot(t *testing.T) {
	l := New()
	l.QueueTransaction("A", "B", 5)
	block := l.SealBlock(1, "")

	block.Transactions[0].Amount = 999
	chain := l.Chain()
	chain[1].Transactions[0].Sender = "mallory"

	last, err := l.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, helpers.Transaction{Sender: "A", Recipient: "B", Amount: 5}, last.Transactions[0])
}

func TestLastBlockOnEmptyChain(t *testing.T) {
	l := &Ledger{now: time.Now}
	_, err := l.LastBlock()
	assert.ErrorIs(t, err, ErrEmptyChain)
}

func TestCanonicalHash(t *testing.T) {
	block := helpers.Block{
		Index:        2,
		Timestamp:    1700000000.5,
		Transactions: []helpers.Transaction{{Sender: "A", Recipient: "B", Amount: 5}},
		Proof:        100,
		PreviousHash: "1",
	}

	h := CanonicalHash(block)
	assert.Len(t, h, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", h)
	assert.Equal(t, h, CanonicalHash(block.Clone()))

	generic := map[string]interface{}{
		"transactions":  []map[string]interface{}{{"sender": "A", "amount": 5, "recipient": "B"}},
		"previous_hash": "1",
		"index":         2,
		"proof":         100,
		"timestamp":     1700000000.5,
	}
	encoded, err := helpers.CanonicalJSON(generic)
	require.NoError(t, err)
	assert.Equal(t, h, helpers.SerializeSHA256Bytes(encoded))

	block.Proof = 101
	assert.NotEqual(t, h, CanonicalHash(block))
}

func TestVerifyLinks(t *testing.T) {
	l := newWithClock(fixedClock())
	l.QueueTransaction("A", "B", 1)
	l.SealBlock(1, "")
	l.SealBlock(2, "")
	good := l.Chain()

	tests := []struct {
		name   string
		mutate func([]helpers.Block) []helpers.Block
		want   error
	}{
		{"valid", func(b []helpers.Block) []helpers.Block { return b }, nil},
		{"empty", func(b []helpers.Block) []helpers.Block { return nil }, ErrEmptyChain},
		{"bad genesis", func(b []helpers.Block) []helpers.Block {
			b[0].PreviousHash = "0"
			return b
		}, ErrBadGenesis},
		{"bad index", func(b []helpers.Block) []helpers.Block {
			b[2].Index = 7
			return b
		}, ErrBadIndex},
		{"tampered transaction", func(b []helpers.Block) []helpers.Block {
			b[1].Transactions[0].Amount = 1000
			return b
		}, ErrBrokenLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := make([]helpers.Block, len(good))
			for i, b := range good {
				blocks[i] = b.Clone()
			}
			err := VerifyLinks(tt.mutate(blocks))
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestConcurrentQueueAndSeal(t *testing.T) {
	l := New()
	const writers, perWriter = 8, 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				l.QueueTransaction(fmt.Sprintf("w%d", w), "x", float64(i))
			}
		}(w)
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			default:
				l.SealBlock(0, "")
			}
		}
	}()
	wg.Wait()
	close(done)
	<-stopped
	l.SealBlock(0, "")

	total := 0
	for _, b := range l.Chain() {
		total += len(b.Transactions)
	}
	assert.Equal(t, writers*perWriter, total)
	assert.Empty(t, l.Pending())
	assert.NoError(t, VerifyLinks(l.Chain()))
}
