// Package worker implements mining for the blockchain. Mining runs on a
// goroutine owned by the worker and never on the caller's goroutine.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
)

// RewardSender is the sender of the transaction paying the node for mining.
const RewardSender = "0"

// ErrShutdown is returned when a request is made after the worker stopped.
var ErrShutdown = errors.New("worker is shut down")

// Recorder captures mining statistics.
type Recorder interface {
	AddBlocksMined()
	AddMiningCancelled()
	AddProofAttempts(n uint64)
}

// Config represents the configuration required to start the worker.
type Config struct {
	NodeID       string
	MiningReward int64
	MineTimeout  time.Duration
	Recorder     Recorder
	EvHandler    ledger.EventHandler
}

// =============================================================================

// result is what a mining operation hands back to the caller.
type result struct {
	block database.Block
	err   error
}

// request asks the mining goroutine to mine one block.
type request struct {
	ctx   context.Context
	reply chan result
}

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	ledger       *ledger.Ledger
	cfg          Config
	wg           sync.WaitGroup
	shut         chan struct{}
	shutOnce     sync.Once
	startMining  chan request
	cancelMining chan bool
	evHandler    ledger.EventHandler
}

// Run creates a worker and starts up the mining goroutine.
func Run(l *ledger.Ledger, cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		ledger:       l,
		cfg:          cfg,
		shut:         make(chan struct{}),
		startMining:  make(chan request),
		cancelMining: make(chan bool, 1),
		evHandler:    ev,
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// Shutdown terminates the goroutine performing work. Calling it more than
// once is safe.
func (w *Worker) Shutdown() {
	w.shutOnce.Do(func() {
		w.evHandler("worker: shutdown: started")
		defer w.evHandler("worker: shutdown: completed")

		w.evHandler("worker: shutdown: signal cancel mining")
		w.SignalCancelMining()

		w.evHandler("worker: shutdown: terminate goroutines")
		close(w.shut)
		w.wg.Wait()
	})
}

// Mine asks the worker to find a proof for the last block and seal the
// pending transactions into a new block. The call waits for the result
// until the context is done. Cancellation is reported with the context
// error.
func (w *Worker) Mine(ctx context.Context) (database.Block, error) {
	req := request{
		ctx:   ctx,
		reply: make(chan result, 1),
	}

	select {
	case w.startMining <- req:
		w.evHandler("worker: Mine: mining signaled")
	case <-w.shut:
		return database.Block{}, ErrShutdown
	case <-ctx.Done():
		return database.Block{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.block, res.err
	case <-ctx.Done():
		return database.Block{}, ctx.Err()
	}
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
