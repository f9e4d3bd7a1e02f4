package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type recorder struct {
	mined     atomic.Int64
	cancelled atomic.Int64
	attempts  atomic.Uint64
}

func (r *recorder) AddBlocksMined()           { r.mined.Add(1) }
func (r *recorder) AddMiningCancelled()       { r.cancelled.Add(1) }
func (r *recorder) AddProofAttempts(n uint64) { r.attempts.Add(n) }

func Test_Mine(t *testing.T) {
	t.Log("Given the need to mine blocks in the background.")
	{
		l, err := ledger.New(ledger.Config{})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the ledger: %v", failed, err)
		}

		var rec recorder
		w := worker.Run(l, worker.Config{
			NodeID:       "node1",
			MiningReward: 1,
			Recorder:     &rec,
		})
		defer w.Shutdown()

		l.SubmitTransaction("A", "B", 5)

		block, err := w.Mine(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if block.Proof != 35293 || block.Index != 2 {
			t.Fatalf("\t%s\tShould get block 2 with proof 35293, got %d %d.", failed, block.Index, block.Proof)
		}
		t.Logf("\t%s\tShould get block 2 with proof 35293.", success)

		exp := []database.Tx{
			{Sender: "A", Recipient: "B", Amount: 5},
			{Sender: worker.RewardSender, Recipient: "node1", Amount: 1},
		}
		if len(block.Transactions) != len(exp) || block.Transactions[0] != exp[0] || block.Transactions[1] != exp[1] {
			t.Fatalf("\t%s\tShould get the pending transaction followed by the reward, got %v.", failed, block.Transactions)
		}
		t.Logf("\t%s\tShould get the pending transaction followed by the reward.", success)

		if err := l.Validate(); err != nil {
			t.Fatalf("\t%s\tShould have a valid chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould have a valid chain.", success)

		if rec.mined.Load() != 1 || rec.attempts.Load() != 35294 {
			t.Fatalf("\t%s\tShould record the mining statistics, got %d %d.", failed, rec.mined.Load(), rec.attempts.Load())
		}
		t.Logf("\t%s\tShould record the mining statistics.", success)
	}
}

func Test_MineCancel(t *testing.T) {
	t.Log("Given the need to abandon mining.")
	{
		l, err := ledger.New(ledger.Config{})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the ledger: %v", failed, err)
		}

		var rec recorder
		w := worker.Run(l, worker.Config{Recorder: &rec, MineTimeout: time.Nanosecond})
		defer w.Shutdown()

		l.SubmitTransaction("A", "B", 5)

		_, err = w.Mine(context.Background())
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("\t%s\tShould get the timeout error back, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould get the timeout error back.", success)

		if l.Length() != 1 || len(l.Mempool()) != 1 {
			t.Fatalf("\t%s\tShould leave the ledger untouched.", failed)
		}
		t.Logf("\t%s\tShould leave the ledger untouched.", success)

		if rec.cancelled.Load() != 1 {
			t.Fatalf("\t%s\tShould record the cancellation.", failed)
		}
		t.Logf("\t%s\tShould record the cancellation.", success)
	}
}

func Test_Shutdown(t *testing.T) {
	t.Log("Given the need to stop the worker.")
	{
		l, err := ledger.New(ledger.Config{})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the ledger: %v", failed, err)
		}

		w := worker.Run(l, worker.Config{})
		w.Shutdown()
		w.Shutdown()
		t.Logf("\t%s\tShould be able to shut down twice.", success)

		if _, err := w.Mine(context.Background()); !errors.Is(err, worker.ErrShutdown) {
			t.Fatalf("\t%s\tShould reject mining after shutdown, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject mining after shutdown.", success)
	}
}
