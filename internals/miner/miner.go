package miner

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wsb.com/wledger/internals/helpers"
)

const (
	// Difficulty is the number of leading hex zeros a proof digest needs.
	Difficulty = 4

	// checkInterval is how many candidates a worker tries between two looks
	// at its context.
	checkInterval = 1 << 12
)

var target = strings.Repeat("0", Difficulty)

// ValidProof reports whether sha256("<lastProof><proof>") starts with
// Difficulty zeros.
func ValidProof(lastProof, proof int64) bool {
	guess := strconv.FormatInt(lastProof, 10) + strconv.FormatInt(proof, 10)
	return strings.HasPrefix(helpers.SerializeSHA256(guess), target)
}

type Miner struct {
	Threads int

	hashes atomic.Uint64
}

func New(threads int) *Miner {
	if threads < 1 {
		threads = 1
	}
	return &Miner{Threads: threads}
}

// Solve returns the smallest non-negative proof accepted by ValidProof for
// lastProof. It gives up with ctx.Err() once ctx is done.
func (m *Miner) Solve(ctx context.Context, lastProof int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	threads := m.Threads
	if threads < 1 {
		threads = 1
	}
	logrus.WithFields(logrus.Fields{
		"last_proof": lastProof,
		"threads":    threads,
	}).Debug("Searching for proof")

	var best atomic.Int64
	best.Store(math.MaxInt64)
	var hashes atomic.Uint64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < threads; w++ {
		first := int64(w)
		stride := int64(threads)
		g.Go(func() error {
			return m.search(gctx, lastProof, first, stride, &best, &hashes)
		})
	}
	if err := g.Wait(); err != nil {
		logrus.WithError(err).WithField("last_proof", lastProof).Warn("Proof search aborted")
		return 0, err
	}

	proof := best.Load()
	elapsed := time.Since(start)
	m.hashes.Add(hashes.Load())
	logrus.WithFields(logrus.Fields{
		"last_proof": lastProof,
		"proof":      proof,
		"elapsed":    elapsed.Round(time.Millisecond),
	}).Info("Found proof")
	logrus.WithField("hashrate", helpers.FormatHashrate(hashes.Load(), elapsed)).Debug("Miner speed")
	return proof, nil
}

// search walks first, first+stride, ... until it reaches the best proof
// found by any worker. Every candidate below the final best is tried by
// exactly one worker, which keeps the result minimal.
func (m *Miner) search(ctx context.Context, lastProof, first, stride int64, best *atomic.Int64, hashes *atomic.Uint64) error {
	var tried uint64
	defer func() { hashes.Add(tried) }()

	for candidate := first; candidate < best.Load(); candidate += stride {
		tried++
		if tried%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if ValidProof(lastProof, candidate) {
			lower(best, candidate)
			return nil
		}
	}
	return nil
}

func lower(best *atomic.Int64, candidate int64) {
	for {
		cur := best.Load()
		if candidate >= cur || best.CompareAndSwap(cur, candidate) {
			return
		}
	}
}

// Hashes is the number of candidates tried by completed searches.
func (m *Miner) Hashes() uint64 {
	return m.hashes.Load()
}
