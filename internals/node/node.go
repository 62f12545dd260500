// Package node ties a ledger to a miner: it runs the mining cycle and pays
// the block reward to this node's identifier.
package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wsb.com/wledger/internals/helpers"
	"wsb.com/wledger/internals/ledger"
	"wsb.com/wledger/internals/miner"
)

const (
	// RewardSender marks a transaction as newly minted coins.
	RewardSender = "0"
	RewardAmount = 1
)

var ErrInvalidProof = errors.New("proof does not satisfy difficulty")

type Node struct {
	Identifier string

	ledger *ledger.Ledger
	miner  *miner.Miner
	mining sync.Mutex
}

func New(identifier string, l *ledger.Ledger, m *miner.Miner) *Node {
	return &Node{
		Identifier: identifier,
		ledger:     l,
		miner:      m,
	}
}

// NewIdentifier returns a random UUID without dashes.
func NewIdentifier() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

type Stats struct {
	Blocks  int
	Pending int
	Hashes  uint64
}

func (n *Node) Stats() Stats {
	return Stats{
		Blocks:  n.ledger.Len(),
		Pending: len(n.ledger.Pending()),
		Hashes:  n.miner.Hashes(),
	}
}

// Mine solves the puzzle for the current head, queues the reward and seals
// the pending transactions into a new block. Only one cycle runs at a time;
// QueueTransaction callers are never blocked by the search.
func (n *Node) Mine(ctx context.Context) (helpers.Block, error) {
	n.mining.Lock()
	defer n.mining.Unlock()

	last, err := n.ledger.LastBlock()
	if err != nil {
		return helpers.Block{}, err
	}

	proof, err := n.miner.Solve(ctx, last.Proof)
	if err != nil {
		return helpers.Block{}, err
	}

	n.ledger.QueueTransaction(RewardSender, n.Identifier, RewardAmount)
	block := n.ledger.SealBlock(proof, "")

	logrus.WithFields(logrus.Fields{
		"index":        block.Index,
		"proof":        block.Proof,
		"transactions": len(block.Transactions),
	}).Info("New block forged")
	return block, nil
}

func (n *Node) NewTransaction(tx helpers.Transaction) int64 {
	index := n.ledger.QueueTransaction(tx.Sender, tx.Recipient, tx.Amount)
	logrus.WithFields(logrus.Fields{
		"sender":    tx.Sender,
		"recipient": tx.Recipient,
		"amount":    tx.Amount,
		"block":     index,
	}).Debug("Transaction queued")
	return index
}

// VerifyChain checks hash linkage and that every block after genesis carries
// a proof solving its predecessor's puzzle.
func VerifyChain(blocks []helpers.Block) error {
	if err := ledger.VerifyLinks(blocks); err != nil {
		return err
	}
	for i := 1; i < len(blocks); i++ {
		if !miner.ValidProof(blocks[i-1].Proof, blocks[i].Proof) {
			return fmt.Errorf("block %d: %w", blocks[i].Index, ErrInvalidProof)
		}
	}
	return nil
}
