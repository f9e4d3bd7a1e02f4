// Package database handles the data model of the blockchain: transactions,
// blocks, the rules that link blocks into a chain, and the interface used to
// store blocks.
package database

import (
	"errors"
	"fmt"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(index uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// BlockData represents what is written to storage.
type BlockData struct {
	Hash  string `json:"hash"`
	Block Block  `json:"block"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:  block.Hash(),
		Block: block,
	}
}

// ToBlock converts a BlockData into a Block, checking the stored hash still
// matches the block contents.
func ToBlock(blockData BlockData) (Block, error) {
	hash := blockData.Block.Hash()
	if blockData.Hash != "" && blockData.Hash != hash {
		return Block{}, fmt.Errorf("stored hash doesn't match block %d, got %s, exp %s", blockData.Block.Index, blockData.Hash, hash)
	}

	return blockData.Block, nil
}

// ReadAll walks the storage and returns every block in index order.
func ReadAll(storage Storage) ([]Block, error) {
	var blocks []Block

	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

// =============================================================================

// ChainError reports the first block in a chain that breaks the rules.
type ChainError struct {
	Index uint64
	Err   error
}

// Error implements the error interface.
func (ce *ChainError) Error() string {
	return fmt.Sprintf("block %d: %s", ce.Index, ce.Err)
}

// Unwrap provides access to the rule that was broken.
func (ce *ChainError) Unwrap() error {
	return ce.Err
}

// GetChainError returns the chain error if one exists in the error chain.
func GetChainError(err error) *ChainError {
	var ce *ChainError
	if !errors.As(err, &ce) {
		return nil
	}
	return ce
}

// ValidateChain walks the chain from the second block onward checking each
// block against its parent. The genesis block is exempt from the proof check.
// The returned error is a *ChainError naming the position (1 based) of the
// first offending block.
func ValidateChain(blocks []Block, evHandler func(v string, args ...any)) error {
	return validateChain(blocks, Block.ValidateBlock, evHandler)
}

// ValidateChainLinks walks the chain like ValidateChain but only checks the
// index and previous hash of each block, leaving proofs unchecked.
func ValidateChainLinks(blocks []Block, evHandler func(v string, args ...any)) error {
	return validateChain(blocks, Block.ValidateLinks, evHandler)
}

func validateChain(blocks []Block, rule func(b Block, previousBlock Block, evHandler func(v string, args ...any)) error, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if len(blocks) == 0 {
		return &ChainError{Index: 0, Err: errors.New("chain has no genesis block")}
	}

	if blocks[0].Index != GenesisIndex {
		return &ChainError{Index: GenesisIndex, Err: fmt.Errorf("%w, got %d, exp %d", ErrIndexMismatch, blocks[0].Index, GenesisIndex)}
	}

	for i := 1; i < len(blocks); i++ {
		if err := rule(blocks[i], blocks[i-1], evHandler); err != nil {
			return &ChainError{Index: uint64(i) + 1, Err: err}
		}
	}

	return nil
}

// IsChainValid reports whether the chain follows every linkage and proof of
// work rule.
func IsChainValid(blocks []Block) bool {
	return ValidateChain(blocks, nil) == nil
}
