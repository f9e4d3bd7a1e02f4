// Package ledger is the core API for the blockchain. It owns the chain of
// sealed blocks and the pool of pending transactions and implements the
// rules for growing the chain.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/canonical"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/memory"
)

// ErrEmptyChain is returned when the chain has no blocks, which can only
// happen if construction was bypassed.
var ErrEmptyChain = errors.New("chain is empty")

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// =============================================================================

// SealPolicy decides what happens when a block is sealed with a proof that
// does not solve the puzzle.
type SealPolicy int

// Set of seal policies.
const (
	SealVerify SealPolicy = iota // Reject the block.
	SealWarn                     // Raise an event and accept the block.
	SealTrust                    // Accept the block.
)

// ParseSealPolicy converts the configured name into a SealPolicy.
func ParseSealPolicy(name string) (SealPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "verify":
		return SealVerify, nil
	case "warn":
		return SealWarn, nil
	case "trust":
		return SealTrust, nil
	}

	return SealVerify, fmt.Errorf("unknown seal policy %q", name)
}

// String implements the fmt.Stringer interface.
func (sp SealPolicy) String() string {
	switch sp {
	case SealWarn:
		return "warn"
	case SealTrust:
		return "trust"
	default:
		return "verify"
	}
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Storage    database.Storage
	SealPolicy SealPolicy
	EvHandler  EventHandler
	Now        func() float64
}

// Ledger manages the chain and the pending pool. A single lock serializes
// every change so a seal drains the pool atomically with respect to new
// submissions.
type Ledger struct {
	mu        sync.RWMutex
	chain     []database.Block
	mempool   *mempool.Mempool
	storage   database.Storage
	policy    SealPolicy
	evHandler EventHandler
	now       func() float64
}

// New constructs a ledger. Blocks already in storage are loaded and
// validated, otherwise a genesis block is created and written.
func New(cfg Config) (*Ledger, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	strg := cfg.Storage
	if strg == nil {
		strg = memory.New()
	}

	now := cfg.Now
	if now == nil {
		now = database.Now
	}

	// Load all existing blocks from storage into memory for processing.
	blocks, err := database.ReadAll(strg)
	if err != nil {
		return nil, fmt.Errorf("reading blocks: %w", err)
	}

	switch {
	case len(blocks) == 0:
		genesis := database.NewGenesisBlock(now())
		if _, err := canonical.Hash(genesis); err != nil {
			return nil, fmt.Errorf("hashing genesis: %w", err)
		}
		if err := strg.Write(database.NewBlockData(genesis)); err != nil {
			return nil, fmt.Errorf("writing genesis: %w", err)
		}
		blocks = []database.Block{genesis}
		ev("ledger: New: genesis: blk[%d]: hash[%s]", genesis.Index, genesis.Hash())

	default:
		if err := validateStored(blocks, cfg.SealPolicy, ev); err != nil {
			return nil, fmt.Errorf("stored chain: %w", err)
		}
		ev("ledger: New: loaded: blocks[%d]", len(blocks))
	}

	l := Ledger{
		chain:     blocks,
		mempool:   mempool.New(),
		storage:   strg,
		policy:    cfg.SealPolicy,
		evHandler: ev,
		now:       now,
	}

	return &l, nil
}

// validateStored checks a chain read back from storage. Blocks sealed under
// the warn or trust policy may carry unsolved proofs, so those policies only
// require index and previous hash linkage.
func validateStored(blocks []database.Block, policy SealPolicy, ev EventHandler) error {
	if policy == SealVerify {
		return database.ValidateChain(blocks, ev)
	}

	if err := database.ValidateChainLinks(blocks, ev); err != nil {
		return err
	}

	if policy == SealWarn {
		for i := 1; i < len(blocks); i++ {
			if !pow.IsValidProof(blocks[i-1].Proof, blocks[i].Proof) {
				ev("ledger: New: WARNING: stored block has unsolved proof: blk[%d]: lastProof[%d]: proof[%d]", blocks[i].Index, blocks[i-1].Proof, blocks[i].Proof)
			}
		}
	}

	return nil
}

// Close closes the underlying storage.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.storage.Close()
}

// SealPolicy returns the policy the ledger was configured with.
func (l *Ledger) SealPolicy() SealPolicy {
	return l.policy
}

// =============================================================================

// SubmitTransaction validates the transaction and adds it to the pending
// pool. The returned index is the block the transaction is expected to land
// in, which is only advisory since a seal can happen before this caller acts.
func (l *Ledger) SubmitTransaction(sender string, recipient string, amount int64) (uint64, error) {
	tx, err := database.NewTx(sender, recipient, amount)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.mempool.Add(tx)
	next := l.chain[len(l.chain)-1].Index + 1

	l.evHandler("ledger: SubmitTransaction: tx[%s]: pending[%d]: block[%d]", tx, n, next)

	return next, nil
}

// SealBlock creates the next block holding every pending transaction, linked
// to the hash of the current last block.
func (l *Ledger) SealBlock(proof uint64) (database.Block, error) {
	return l.SealBlockWithHash(proof, "")
}

// SealBlockWithHash creates the next block holding every pending transaction
// followed by the extra transactions. When previousHash is empty the hash of
// the current last block is used, otherwise it must match that hash. The
// block is written to storage before it joins the chain and the pool is
// cleared only once both succeed.
func (l *Ledger) SealBlockWithHash(proof uint64, previousHash string, extra ...database.Tx) (database.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	last := l.chain[len(l.chain)-1]
	lastHash := last.Hash()

	if previousHash == "" {
		previousHash = lastHash
	}

	if previousHash != lastHash {
		l.evHandler("ledger: SealBlock: REJECTED: prevHash[%s]: lastHash[%s]", previousHash, lastHash)
		return database.Block{}, fmt.Errorf("%w, got %s, exp %s", database.ErrPreviousHashMismatch, previousHash, lastHash)
	}

	if !pow.IsValidProof(last.Proof, proof) {
		switch l.policy {
		case SealVerify:
			l.evHandler("ledger: SealBlock: REJECTED: lastProof[%d]: proof[%d]", last.Proof, proof)
			return database.Block{}, fmt.Errorf("%w, parent proof %d, proof %d", database.ErrInvalidProof, last.Proof, proof)
		case SealWarn:
			l.evHandler("ledger: SealBlock: WARNING: accepting unsolved proof: lastProof[%d]: proof[%d]", last.Proof, proof)
		}
	}

	for _, tx := range extra {
		if err := tx.Validate(); err != nil {
			return database.Block{}, err
		}
	}

	pending := l.mempool.Copy()
	txs := make([]database.Tx, 0, len(pending)+len(extra))
	txs = append(txs, pending...)
	txs = append(txs, extra...)

	block := database.Block{
		Index:        last.Index + 1,
		Timestamp:    l.now(),
		Transactions: txs,
		Proof:        proof,
		PreviousHash: previousHash,
	}

	hash, err := canonical.Hash(block)
	if err != nil {
		return database.Block{}, fmt.Errorf("hashing block %d: %w", block.Index, err)
	}

	if err := l.storage.Write(database.NewBlockData(block)); err != nil {
		return database.Block{}, fmt.Errorf("writing block %d: %w", block.Index, err)
	}

	l.chain = append(l.chain, block)
	l.mempool.Truncate()

	l.evHandler("ledger: SealBlock: blk[%d]: txs[%d]: proof[%d]: hash[%s]", block.Index, len(txs), proof, hash)

	return block.Copy(), nil
}

// =============================================================================

// LastBlock returns the most recent block in the chain. A ledger always holds
// its genesis block, so an empty chain panics. Use TryLastBlock for the
// checked form.
func (l *Ledger) LastBlock() database.Block {
	block, err := l.TryLastBlock()
	if err != nil {
		panic(err)
	}

	return block
}

// TryLastBlock returns the most recent block in the chain or ErrEmptyChain.
func (l *Ledger) TryLastBlock() (database.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.chain) == 0 {
		return database.Block{}, ErrEmptyChain
	}

	return l.chain[len(l.chain)-1].Copy(), nil
}

// Hash returns the canonical hash of the specified block.
func (l *Ledger) Hash(block database.Block) (string, error) {
	return canonical.Hash(block)
}

// Chain returns a copy of every block in the chain.
func (l *Ledger) Chain() []database.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]database.Block, len(l.chain))
	for i, block := range l.chain {
		blocks[i] = block.Copy()
	}

	return blocks
}

// Length returns the number of blocks in the chain.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.chain)
}

// Mempool returns a copy of the pending transactions in arrival order.
func (l *Ledger) Mempool() []database.Tx {
	return l.mempool.Copy()
}

// Validate checks the ledger's own chain.
func (l *Ledger) Validate() error {
	return l.ValidateChain(l.Chain())
}

// ValidateChain checks the specified chain and reports the first block that
// breaks the rules as a *database.ChainError.
func (l *Ledger) ValidateChain(blocks []database.Block) error {
	return database.ValidateChain(blocks, l.evHandler)
}

// IsChainValid reports whether the specified chain follows every rule.
func (l *Ledger) IsChainValid(blocks []database.Block) bool {
	return l.ValidateChain(blocks) == nil
}
