// Package ledger holds a node's chain of sealed blocks and the buffer of
// transactions waiting for the next one.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"wsb.com/wledger/internals/helpers"
)

const (
	GenesisProof        int64 = 100
	GenesisPreviousHash       = "1"
)

var (
	ErrEmptyChain = errors.New("chain is empty")
	ErrBadGenesis = errors.New("invalid genesis block")
	ErrBadIndex   = errors.New("block index out of sequence")
	ErrBrokenLink = errors.New("previous hash does not match")
)

type Ledger struct {
	mu      sync.RWMutex
	chain   []helpers.Block
	pending []helpers.Transaction
	now     func() time.Time
}

// New returns a ledger whose chain already holds the genesis block.
func New() *Ledger {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Ledger {
	l := &Ledger{
		chain: make([]helpers.Block, 0),
		now:   now,
	}
	l.SealBlock(GenesisProof, GenesisPreviousHash)
	return l
}

// QueueTransaction buffers a transaction and returns the index of the block
// it will be sealed into.
func (l *Ledger) QueueTransaction(sender, recipient string, amount float64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(l.pending, helpers.Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	})
	return int64(len(l.chain)) + 1
}

// SealBlock appends a block holding every pending transaction and empties the
// buffer. An empty previousHash is resolved to the hash of the current head.
func (l *Ledger) SealBlock(proof int64, previousHash string) helpers.Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	if previousHash == "" {
		if len(l.chain) == 0 {
			previousHash = GenesisPreviousHash
		} else {
			previousHash = CanonicalHash(l.chain[len(l.chain)-1])
		}
	}

	txs := l.pending
	if txs == nil {
		txs = make([]helpers.Transaction, 0)
	}
	block := helpers.Block{
		Index:        int64(len(l.chain)) + 1,
		Timestamp:    float64(l.now().UnixNano()) / float64(time.Second),
		Transactions: txs,
		Proof:        proof,
		PreviousHash: previousHash,
	}

	l.chain = append(l.chain, block)
	l.pending = nil
	return block.Clone()
}

func (l *Ledger) LastBlock() (helpers.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.chain) == 0 {
		return helpers.Block{}, ErrEmptyChain
	}
	return l.chain[len(l.chain)-1].Clone(), nil
}

// Chain returns a copy of every sealed block, genesis first.
func (l *Ledger) Chain() []helpers.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]helpers.Block, len(l.chain))
	for i, b := range l.chain {
		blocks[i] = b.Clone()
	}
	return blocks
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

func (l *Ledger) Pending() []helpers.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	txs := make([]helpers.Transaction, len(l.pending))
	copy(txs, l.pending)
	return txs
}

// CanonicalHash is the SHA-256 hex digest of the block's canonical JSON form.
func CanonicalHash(block helpers.Block) string {
	encoded, err := helpers.CanonicalJSON(block)
	if err != nil {
		// Only non-finite floats fail to encode and no caller can produce one
		// through JSON input.
		panic(fmt.Sprintf("ledger: encoding block %d: %v", block.Index, err))
	}
	return helpers.SerializeSHA256Bytes(encoded)
}

// VerifyLinks checks the genesis sentinel, index sequence and hash linkage of
// blocks. It does not look at proofs.
func VerifyLinks(blocks []helpers.Block) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}
	if blocks[0].Index != 1 || blocks[0].PreviousHash != GenesisPreviousHash {
		return ErrBadGenesis
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Index != int64(i)+1 {
			return fmt.Errorf("block %d: %w (got %d)", i+1, ErrBadIndex, blocks[i].Index)
		}
		if want := CanonicalHash(blocks[i-1]); blocks[i].PreviousHash != want {
			return fmt.Errorf("block %d: %w", i+1, ErrBrokenLink)
		}
	}
	return nil
}
