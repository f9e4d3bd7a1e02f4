// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ardanlabs/powledger/business/sys/metrics"
	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/worker"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/validate"
	"github.com/ardanlabs/powledger/foundation/web"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	Worker *worker.Worker
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Mine finds the proof for the last block and seals the pending transactions
// into a new block. The work happens on the mining worker; this handler only
// waits for the result.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.Worker.Mine(ctx)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return errs.NewTrusted(fmt.Errorf("mining cancelled: %w", err), http.StatusServiceUnavailable)
		case errors.Is(err, worker.ErrShutdown):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		case errors.Is(err, database.ErrPreviousHashMismatch), errors.Is(err, database.ErrInvalidProof):
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return fmt.Errorf("mining: %w", err)
	}

	resp := mineResponse{
		Message:      "New block forged",
		Index:        block.Index,
		Transactions: block.Transactions,
		Proof:        block.Proof,
		PreviousHash: block.PreviousHash,
		Timestamp:    block.Timestamp,
		Hash:         block.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds a new transaction to the pending pool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx newTx
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(tx); err != nil {
		return err
	}

	h.Log.Infow("add tran", "traceid", v.TraceID, "sender", tx.Sender, "recipient", tx.Recipient, "amount", *tx.Amount)

	index, err := h.Ledger.SubmitTransaction(tx.Sender, tx.Recipient, *tx.Amount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	metrics.AddTransactions(ctx)

	resp := txResponse{
		Message: fmt.Sprintf("Transaction will be added to block %d", index),
		Index:   index,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Pending returns the set of transactions waiting for the next block.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Mempool(), http.StatusOK)
}

// Chain returns the full chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.Ledger.Chain()

	resp := chainResponse{
		Chain:  chain,
		Length: len(chain),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ValidateChain walks the node's chain and reports the first block that
// breaks the rules.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.Ledger.Chain()

	resp := validateResponse{
		Valid:  true,
		Length: len(chain),
	}

	if err := h.Ledger.ValidateChain(chain); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
		if ce := database.GetChainError(err); ce != nil {
			resp.Index = ce.Index
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ValidateProof reports whether the proof solves the puzzle for the last
// proof.
func (h Handlers) ValidateProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	lastProof, ok := gmath.ParseUint64(web.Param(r, "last"))
	if !ok {
		return errs.NewTrusted(fmt.Errorf("invalid last proof %q", web.Param(r, "last")), http.StatusBadRequest)
	}

	proof, ok := gmath.ParseUint64(web.Param(r, "proof"))
	if !ok {
		return errs.NewTrusted(fmt.Errorf("invalid proof %q", web.Param(r, "proof")), http.StatusBadRequest)
	}

	resp := proofResponse{
		Valid:     pow.IsValidProof(lastProof, proof),
		LastProof: lastProof,
		Proof:     proof,
		Hash:      pow.Hash(lastProof, proof),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
