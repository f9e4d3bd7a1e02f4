package database_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/canonical"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Hashes computed with Python hashlib for the chain below.
const (
	genesisHash = "9b2e32b4adde14db0c2e944ccbf0bee977fa3dc67d51e05e41260e88b98470e6"
	block2Hash  = "dbc2c6b904c901965bb36afd56b6160a33240724102521de1896934215ebd481"
)

func testChain() []database.Block {
	return []database.Block{
		database.NewGenesisBlock(1700000000.0),
		{
			Index:        2,
			Timestamp:    1700000012.345678,
			Transactions: []database.Tx{{Sender: "A", Recipient: "B", Amount: 5}},
			Proof:        35293,
			PreviousHash: genesisHash,
		},
		{
			Index:        3,
			Timestamp:    1700000020.5,
			Transactions: []database.Tx{},
			Proof:        35089,
			PreviousHash: block2Hash,
		},
	}
}

// =============================================================================

func Test_Hash(t *testing.T) {
	t.Log("Given the need to hash blocks deterministically.")
	{
		blocks := testChain()

		t.Logf("\tTest 0:\tWhen hashing the genesis block.")
		{
			if blocks[0].Hash() != genesisHash {
				t.Logf("\t%s\tTest 0:\tgot: %s", failed, blocks[0].Hash())
				t.Logf("\t%s\tTest 0:\texp: %s", failed, genesisHash)
				t.Fatalf("\t%s\tTest 0:\tShould get the known hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the known hash.", success)

			again := database.NewGenesisBlock(1700000000.0)
			if again.Hash() != blocks[0].Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould get the same hash on every call.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the same hash on every call.", success)
		}

		t.Logf("\tTest 1:\tWhen hashing a block with transactions.")
		{
			if blocks[1].Hash() != block2Hash {
				t.Logf("\t%s\tTest 1:\tgot: %s", failed, blocks[1].Hash())
				t.Logf("\t%s\tTest 1:\texp: %s", failed, block2Hash)
				t.Fatalf("\t%s\tTest 1:\tShould get the known hash.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get the known hash.", success)

			clone := database.Block{
				PreviousHash: blocks[1].PreviousHash,
				Proof:        blocks[1].Proof,
				Transactions: []database.Tx{{Amount: 5, Recipient: "B", Sender: "A"}},
				Timestamp:    blocks[1].Timestamp,
				Index:        blocks[1].Index,
			}
			if clone.Hash() != blocks[1].Hash() {
				t.Fatalf("\t%s\tTest 1:\tShould get the same hash for a structurally identical block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get the same hash for a structurally identical block.", success)
		}

		t.Logf("\tTest 2:\tWhen hashing a block with a NaN timestamp.")
		{
			bad := database.Block{Index: 2, Timestamp: math.NaN(), Transactions: []database.Tx{}, PreviousHash: genesisHash}

			if _, err := canonical.Hash(bad); !errors.Is(err, canonical.ErrUnsupportedFloat) {
				t.Fatalf("\t%s\tTest 2:\tShould get back the encoding error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get back the encoding error.", success)

			if bad.Hash() != database.ZeroHash {
				t.Fatalf("\t%s\tTest 2:\tShould get the zero hash, got %s.", failed, bad.Hash())
			}
			t.Logf("\t%s\tTest 2:\tShould get the zero hash.", success)
		}
	}
}

func Test_JSON(t *testing.T) {
	t.Log("Given the need to move blocks across the wire.")
	{
		t.Logf("\tTest 0:\tWhen encoding the genesis block.")
		{
			data, err := json.Marshal(database.NewGenesisBlock(1700000000.0))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to marshal the block: %v", failed, err)
			}

			const exp = `{"index":1,"previousHash":1,"proof":100,"timestamp":1700000000.0,"transactions":[]}`
			if string(data) != exp {
				t.Logf("\t%s\tTest 0:\tgot: %s", failed, data)
				t.Logf("\t%s\tTest 0:\texp: %s", failed, exp)
				t.Fatalf("\t%s\tTest 0:\tShould encode the sentinel as a number.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould encode the sentinel as a number.", success)
		}

		t.Logf("\tTest 1:\tWhen decoding blocks written by a Python node.")
		{
			const doc = `[{"index": 1, "previousHash": 1, "proof": 100, "timestamp": 1700000000.0, "transactions": []},
				{"index": 2, "previousHash": "` + genesisHash + `", "proof": 35293, "timestamp": 1700000012.345678, "transactions": [{"amount": 5, "recipient": "B", "sender": "A"}]}]`

			var blocks []database.Block
			if err := json.Unmarshal([]byte(doc), &blocks); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to unmarshal the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to unmarshal the chain.", success)

			if !blocks[0].IsGenesis() {
				t.Fatalf("\t%s\tTest 1:\tShould recognize the genesis sentinel.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould recognize the genesis sentinel.", success)

			if blocks[1].Hash() != block2Hash {
				t.Fatalf("\t%s\tTest 1:\tShould get the known hash after decoding.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get the known hash after decoding.", success)

			if !database.IsChainValid(blocks) {
				t.Fatalf("\t%s\tTest 1:\tShould accept the decoded chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould accept the decoded chain.", success)
		}
	}
}

func Test_ValidateChain(t *testing.T) {
	type table struct {
		name   string
		tamper func(blocks []database.Block)
		index  uint64
		err    error
	}

	tt := []table{
		{
			name:   "valid",
			tamper: func(blocks []database.Block) {},
		},
		{
			name:   "amount",
			tamper: func(blocks []database.Block) { blocks[1].Transactions = []database.Tx{{Sender: "A", Recipient: "B", Amount: 500}} },
			index:  3,
			err:    database.ErrPreviousHashMismatch,
		},
		{
			name:   "proof",
			tamper: func(blocks []database.Block) { blocks[1].Proof = 35292 },
			index:  2,
			err:    database.ErrInvalidProof,
		},
		{
			name:   "index",
			tamper: func(blocks []database.Block) { blocks[2].Index = 7 },
			index:  3,
			err:    database.ErrIndexMismatch,
		},
		{
			name:   "previousHash",
			tamper: func(blocks []database.Block) { blocks[1].PreviousHash = database.ZeroHash },
			index:  2,
			err:    database.ErrPreviousHashMismatch,
		},
	}

	t.Log("Given the need to detect a tampered chain.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen validating the %s case.", testID, tst.name)
				{
					blocks := testChain()
					tst.tamper(blocks)

					err := database.ValidateChain(blocks, nil)
					if tst.err == nil {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould accept the chain: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould accept the chain.", success, testID)
						return
					}

					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould get back %q, got %v.", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get back %q.", success, testID, tst.err)

					ce := database.GetChainError(err)
					if ce == nil || ce.Index != tst.index {
						t.Fatalf("\t%s\tTest %d:\tShould report block %d, got %v.", failed, testID, tst.index, err)
					}
					t.Logf("\t%s\tTest %d:\tShould report block %d.", success, testID, tst.index)

					if database.IsChainValid(blocks) {
						t.Fatalf("\t%s\tTest %d:\tShould not report the chain as valid.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould not report the chain as valid.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ValidateChainLinks(t *testing.T) {
	t.Log("Given the need to check linkage without checking proofs.")
	{
		t.Logf("\tTest 0:\tWhen a block carries an unsolved proof.")
		{
			blocks := testChain()
			blocks[2].Proof = 1

			if err := database.ValidateChainLinks(blocks, nil); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the chain.", success)

			if !errors.Is(database.ValidateChain(blocks, nil), database.ErrInvalidProof) {
				t.Fatalf("\t%s\tTest 0:\tShould still be rejected by the full check.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould still be rejected by the full check.", success)
		}

		t.Logf("\tTest 1:\tWhen a block breaks the linkage.")
		{
			blocks := testChain()
			blocks[1].PreviousHash = database.ZeroHash

			err := database.ValidateChainLinks(blocks, nil)
			if !errors.Is(err, database.ErrPreviousHashMismatch) {
				t.Fatalf("\t%s\tTest 1:\tShould get back %q, got %v.", failed, database.ErrPreviousHashMismatch, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get back %q.", success, database.ErrPreviousHashMismatch)

			if ce := database.GetChainError(err); ce == nil || ce.Index != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould report block 2, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould report block 2.", success)
		}

		t.Logf("\tTest 2:\tWhen a block is out of order.")
		{
			blocks := testChain()
			blocks[2].Index = 7

			if !errors.Is(database.ValidateChainLinks(blocks, nil), database.ErrIndexMismatch) {
				t.Fatalf("\t%s\tTest 2:\tShould get back %q.", failed, database.ErrIndexMismatch)
			}
			t.Logf("\t%s\tTest 2:\tShould get back %q.", success, database.ErrIndexMismatch)
		}
	}
}

func Test_NewTx(t *testing.T) {
	type table struct {
		name      string
		sender    string
		recipient string
		amount    int64
		err       error
	}

	tt := []table{
		{name: "valid", sender: "A", recipient: "B", amount: 5},
		{name: "zero", sender: "A", recipient: "B", amount: 0},
		{name: "sender", recipient: "B", amount: 5, err: database.ErrMissingSender},
		{name: "recipient", sender: "A", amount: 5, err: database.ErrMissingRecipient},
		{name: "negative", sender: "A", recipient: "B", amount: -1, err: database.ErrNegativeAmount},
	}

	t.Log("Given the need to reject malformed transactions.")
	{
		for testID, tst := range tt {
			_, err := database.NewTx(tst.sender, tst.recipient, tst.amount)
			if !errors.Is(err, tst.err) {
				t.Fatalf("\t%s\tTest %d:\tShould get back %v for %s, got %v.", failed, testID, tst.err, tst.name, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get back %v for %s.", success, testID, tst.err, tst.name)
		}
	}
}
