package public

import "github.com/ardanlabs/powledger/foundation/blockchain/database"

// newTx is what a client sends to submit a transaction. Amount is a pointer
// so a missing amount can be told apart from zero.
type newTx struct {
	Sender    string `json:"sender" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Amount    *int64 `json:"amount" validate:"required,gte=0"`
}

type txResponse struct {
	Message string `json:"message"`
	Index   uint64 `json:"index"`
}

type mineResponse struct {
	Message      string        `json:"message"`
	Index        uint64        `json:"index"`
	Transactions []database.Tx `json:"transactions"`
	Proof        uint64        `json:"proof"`
	PreviousHash string        `json:"previousHash"`
	Timestamp    float64       `json:"timestamp"`
	Hash         string        `json:"hash"`
}

type chainResponse struct {
	Chain  []database.Block `json:"chain"`
	Length int              `json:"length"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Length int    `json:"length"`
	Index  uint64 `json:"index,omitempty"`
	Error  string `json:"error,omitempty"`
}

type proofResponse struct {
	Valid     bool   `json:"valid"`
	LastProof uint64 `json:"lastProof"`
	Proof     uint64 `json:"proof"`
	Hash      string `json:"hash"`
}
