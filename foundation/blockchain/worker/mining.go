package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case req := <-w.startMining:
			if w.isShutdown() {
				req.reply <- result{err: ErrShutdown}
				continue
			}
			block, err := w.runMiningOperation(req.ctx)
			req.reply <- result{block: block, err: err}

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation finds the proof for the last block and seals every
// pending transaction, plus the mining reward, into a new block.
func (w *Worker) runMiningOperation(reqCtx context.Context) (database.Block, error) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()

	if w.cfg.MineTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, w.cfg.MineTimeout)
		defer tcancel()
	}

	var block database.Block
	var mineErr error

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, mineErr = w.mine(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

		if mineErr != nil {
			switch {
			case errors.Is(mineErr, context.Canceled), errors.Is(mineErr, context.DeadlineExceeded):
				w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
				if w.cfg.Recorder != nil {
					w.cfg.Recorder.AddMiningCancelled()
				}
			default:
				w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", mineErr)
			}
			return
		}

		w.evHandler("worker: runMiningOperation: MINING: SOLVED: blk[%d]", block.Index)
		if w.cfg.Recorder != nil {
			w.cfg.Recorder.AddBlocksMined()
		}
	}()

	// Wait for both G's to terminate.
	wg.Wait()

	return block, mineErr
}

// mine runs the proof search against the current last block and seals the
// block linked to that same last block.
func (w *Worker) mine(ctx context.Context) (database.Block, error) {
	last, err := w.ledger.TryLastBlock()
	if err != nil {
		return database.Block{}, err
	}

	proof, err := pow.Search(ctx, last.Proof, pow.EventHandler(w.evHandler))
	if err != nil {
		return database.Block{}, err
	}

	if w.cfg.Recorder != nil {
		w.cfg.Recorder.AddProofAttempts(proof + 1)
	}

	var extra []database.Tx
	if w.cfg.MiningReward > 0 && w.cfg.NodeID != "" {
		reward, err := database.NewTx(RewardSender, w.cfg.NodeID, w.cfg.MiningReward)
		if err != nil {
			return database.Block{}, err
		}
		extra = append(extra, reward)
	}

	return w.ledger.SealBlockWithHash(proof, last.Hash(), extra...)
}
