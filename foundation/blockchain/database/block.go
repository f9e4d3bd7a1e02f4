package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/canonical"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

// Genesis block constants. These must not change or previously stored chains
// can no longer be verified.
const (
	GenesisIndex uint64 = 1
	GenesisProof uint64 = 100

	// GenesisPreviousHash is the sentinel used in place of a real parent
	// hash. It is stored as the number 1, which can never equal a digest.
	GenesisPreviousHash = "1"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// Set of errors returned when a block can't follow its parent.
var (
	ErrInvalidProof         = errors.New("block proof does not solve the puzzle")
	ErrPreviousHashMismatch = errors.New("previous hash doesn't match parent block")
	ErrIndexMismatch        = errors.New("block is not the next index")
)

// =============================================================================

// Block represents a group of transactions batched together. A block is
// never changed once it is created.
type Block struct {
	Index        uint64
	Timestamp    float64 // Seconds since the epoch.
	Transactions []Tx
	Proof        uint64
	PreviousHash string
}

// NewGenesisBlock constructs the first block of a chain.
func NewGenesisBlock(timestamp float64) Block {
	return Block{
		Index:        GenesisIndex,
		Timestamp:    timestamp,
		Transactions: []Tx{},
		Proof:        GenesisProof,
		PreviousHash: GenesisPreviousHash,
	}
}

// Now returns the current time as real valued seconds since the epoch with
// microsecond precision.
func Now() float64 {
	return float64(time.Now().UnixMicro()) / 1e6
}

// IsGenesis reports whether this block carries the genesis sentinel.
func (b Block) IsGenesis() bool {
	return b.Index == GenesisIndex && b.PreviousHash == GenesisPreviousHash
}

// Hash returns the unique hash for the Block. Only a NaN or infinite
// timestamp can fail to encode, and then ZeroHash is returned. Blocks built
// by NewGenesisBlock, decoded by UnmarshalJSON or sealed by a ledger always
// encode. Use canonical.Hash to see the error.
func (b Block) Hash() string {
	hash, err := canonical.Hash(b)
	if err != nil {
		return ZeroHash
	}

	return hash
}

// CanonicalValue implements the canonical.Valuer interface.
func (b Block) CanonicalValue() any {
	var prevHash any = b.PreviousHash
	if b.PreviousHash == GenesisPreviousHash {
		prevHash = 1
	}

	trans := make([]any, len(b.Transactions))
	for i, tx := range b.Transactions {
		trans[i] = tx
	}

	return map[string]any{
		"index":        b.Index,
		"timestamp":    b.Timestamp,
		"transactions": trans,
		"proof":        b.Proof,
		"previousHash": prevHash,
	}
}

// MarshalJSON writes the block in its canonical form.
func (b Block) MarshalJSON() ([]byte, error) {
	return canonical.Marshal(b)
}

// UnmarshalJSON reads a block in its canonical form. The previous hash is
// accepted as a string or as the numeric genesis sentinel.
func (b *Block) UnmarshalJSON(data []byte) error {
	var aux struct {
		Index        uint64          `json:"index"`
		Timestamp    float64         `json:"timestamp"`
		Transactions []Tx            `json:"transactions"`
		Proof        uint64          `json:"proof"`
		PreviousHash json.RawMessage `json:"previousHash"`
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var prevHash string
	raw := bytes.TrimSpace(aux.PreviousHash)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return errors.New("block is missing previousHash")

	case raw[0] == '"':
		if err := json.Unmarshal(raw, &prevHash); err != nil {
			return fmt.Errorf("decoding previousHash: %w", err)
		}

	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("decoding previousHash: %w", err)
		}
		prevHash = strings.TrimSuffix(n.String(), ".0")
	}

	if aux.Transactions == nil {
		aux.Transactions = []Tx{}
	}

	*b = Block{
		Index:        aux.Index,
		Timestamp:    aux.Timestamp,
		Transactions: aux.Transactions,
		Proof:        aux.Proof,
		PreviousHash: prevHash,
	}

	return nil
}

// ValidateBlock takes a block and validates it to be included into the
// blockchain after the specified parent block.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	if err := b.ValidateLinks(previousBlock, evHandler); err != nil {
		return err
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: proof solves the puzzle with the parent proof", b.Index)

	if !pow.IsValidProof(previousBlock.Proof, b.Proof) {
		return fmt.Errorf("%w, parent proof %d, proof %d", ErrInvalidProof, previousBlock.Proof, b.Proof)
	}

	return nil
}

// ValidateLinks checks the block follows the specified parent by index and
// previous hash. The proof is not checked.
func (b Block) ValidateLinks(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block index is the next index", b.Index)

	nextIndex := previousBlock.Index + 1
	if b.Index != nextIndex {
		return fmt.Errorf("%w, got %d, exp %d", ErrIndexMismatch, b.Index, nextIndex)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: previous hash does match parent block", b.Index)

	parentHash := previousBlock.Hash()
	if b.PreviousHash != parentHash {
		return fmt.Errorf("%w, got %s, exp %s", ErrPreviousHashMismatch, b.PreviousHash, parentHash)
	}

	return nil
}

// Copy returns a block with its own copy of the transactions.
func (b Block) Copy() Block {
	trans := make([]Tx, len(b.Transactions))
	copy(trans, b.Transactions)
	b.Transactions = trans

	return b
}
