package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/canonical"
)

// Set of errors returned when a transaction is not well formed.
var (
	ErrMissingSender    = errors.New("transaction invalid, sender is required")
	ErrMissingRecipient = errors.New("transaction invalid, recipient is required")
	ErrNegativeAmount   = errors.New("transaction invalid, amount can't be negative")
)

// =============================================================================

// Tx is the transactional information between two parties. There is no
// signature, the sender is whatever the submitter claims it is.
type Tx struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

// NewTx constructs a new transaction after validating it.
func NewTx(sender string, recipient string, amount int64) (Tx, error) {
	tx := Tx{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}

	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// Validate checks the transaction has both parties and a usable amount.
func (tx Tx) Validate() error {
	if tx.Sender == "" {
		return ErrMissingSender
	}

	if tx.Recipient == "" {
		return ErrMissingRecipient
	}

	if tx.Amount < 0 {
		return fmt.Errorf("%w, got %d", ErrNegativeAmount, tx.Amount)
	}

	return nil
}

// CanonicalValue implements the canonical.Valuer interface.
func (tx Tx) CanonicalValue() any {
	return map[string]any{
		"sender":    tx.Sender,
		"recipient": tx.Recipient,
		"amount":    tx.Amount,
	}
}

// MarshalJSON writes the transaction in its canonical form.
func (tx Tx) MarshalJSON() ([]byte, error) {
	return canonical.Marshal(tx)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%d", tx.Sender, tx.Recipient, tx.Amount)
}
