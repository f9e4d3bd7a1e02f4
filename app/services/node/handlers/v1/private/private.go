// Package private maintains the group of handlers for node administration.
package private

import (
	"context"
	"fmt"
	"net/http"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"go.uber.org/zap"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/worker"
	"github.com/ardanlabs/powledger/foundation/web"
)

// Handlers manages the set of node administration endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	Worker *worker.Worker
	NodeID string
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	last := h.Ledger.LastBlock()

	status := struct {
		NodeID     string `json:"nodeID"`
		Length     int    `json:"length"`
		LastIndex  uint64 `json:"lastIndex"`
		LastHash   string `json:"lastHash"`
		LastProof  uint64 `json:"lastProof"`
		Pending    int    `json:"pending"`
		SealPolicy string `json:"sealPolicy"`
		Difficulty int    `json:"difficulty"`
	}{
		NodeID:     h.NodeID,
		Length:     h.Ledger.Length(),
		LastIndex:  last.Index,
		LastHash:   last.Hash(),
		LastProof:  last.Proof,
		Pending:    len(h.Ledger.Mempool()),
		SealPolicy: h.Ledger.SealPolicy().String(),
		Difficulty: pow.Difficulty,
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// BlocksByIndex returns the blocks with an index between from and to
// inclusive. Use "latest" for to when the end of the chain is wanted.
func (h Handlers) BlocksByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, ok := gmath.ParseUint64(web.Param(r, "from"))
	if !ok || from == 0 {
		return errs.NewTrusted(fmt.Errorf("invalid from index %q", web.Param(r, "from")), http.StatusBadRequest)
	}

	chain := h.Ledger.Chain()

	to := uint64(len(chain))
	if param := web.Param(r, "to"); param != "latest" {
		to, ok = gmath.ParseUint64(param)
		if !ok {
			return errs.NewTrusted(fmt.Errorf("invalid to index %q", param), http.StatusBadRequest)
		}
	}

	if from > to {
		return errs.NewTrusted(fmt.Errorf("from %d is greater than to %d", from, to), http.StatusBadRequest)
	}

	blocks := []database.Block{}
	for _, block := range chain {
		if block.Index >= from && block.Index <= to {
			blocks = append(blocks, block)
		}
	}

	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// CancelMining abandons the mining operation in flight, if any.
func (h Handlers) CancelMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.Worker.SignalCancelMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining cancel signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
