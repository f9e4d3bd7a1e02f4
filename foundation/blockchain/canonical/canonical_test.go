package canonical_test

import (
	"errors"
	"math"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/canonical"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// The expected values were produced by json.dumps(value, sort_keys=True) and
// hashlib.sha256 so these tests pin the encoding byte for byte.

func Test_Marshal(t *testing.T) {
	type table struct {
		name  string
		value any
		exp   string
		hash  string
	}

	tt := []table{
		{
			name: "genesis",
			value: map[string]any{
				"transactions": []any{},
				"proof":        100,
				"previousHash": 1,
				"timestamp":    1700000000.0,
				"index":        1,
			},
			exp:  `{"index": 1, "previousHash": 1, "proof": 100, "timestamp": 1700000000.0, "transactions": []}`,
			hash: "9b2e32b4adde14db0c2e944ccbf0bee977fa3dc67d51e05e41260e88b98470e6",
		},
		{
			name: "nested",
			value: map[string]any{
				"index":        2,
				"timestamp":    1700000012.345678,
				"transactions": []any{map[string]any{"sender": "A", "recipient": "B", "amount": 5}},
				"proof":        uint64(35293),
				"previousHash": "9b2e32b4adde14db0c2e944ccbf0bee977fa3dc67d51e05e41260e88b98470e6",
			},
			exp:  `{"index": 2, "previousHash": "9b2e32b4adde14db0c2e944ccbf0bee977fa3dc67d51e05e41260e88b98470e6", "proof": 35293, "timestamp": 1700000012.345678, "transactions": [{"amount": 5, "recipient": "B", "sender": "A"}]}`,
			hash: "dbc2c6b904c901965bb36afd56b6160a33240724102521de1896934215ebd481",
		},
		{
			name: "escapes",
			value: map[string]any{
				"index":        3,
				"timestamp":    1e16,
				"transactions": []any{map[string]any{"sender": "Zoë \"q\"\n", "recipient": "😀/<x>", "amount": int64(0)}},
				"proof":        0,
				"previousHash": "ab",
			},
			exp:  `{"index": 3, "previousHash": "ab", "proof": 0, "timestamp": 1e+16, "transactions": [{"amount": 0, "recipient": "\ud83d\ude00/<x>", "sender": "Zo\u00eb \"q\"\n"}]}`,
			hash: "775197f4ba201e23245aca4f72ad108301a6e758357318604a7b7bfddfeaa5f8",
		},
	}

	t.Log("Given the need to encode values the same way as Python json.dumps.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
				{
					data, err := canonical.Marshal(tst.value)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to marshal the value: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to marshal the value.", success, testID)

					if string(data) != tst.exp {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, data)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould get the canonical bytes.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the canonical bytes.", success, testID)

					hash, err := canonical.Hash(tst.value)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to hash the value: %v", failed, testID, err)
					}

					if hash != tst.hash {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, hash)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.hash)
						t.Fatalf("\t%s\tTest %d:\tShould get the known hash.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the known hash.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_FormatFloat(t *testing.T) {
	tt := []struct {
		f   float64
		exp string
	}{
		{0.0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1e15, "1000000000000000.0"},
		{1e16, "1e+16"},
		{123456789.123, "123456789.123"},
		{1700000000.1234567, "1700000000.1234567"},
		{5e-324, "5e-324"},
		{1.7976931348623157e308, "1.7976931348623157e+308"},
		{-2.5, "-2.5"},
	}

	t.Log("Given the need to format floats like Python json.dumps.")
	{
		for _, tst := range tt {
			f, exp := tst.f, tst.exp
			got, err := canonical.FormatFloat(f)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to format %v: %v", failed, f, err)
			}

			if got != exp {
				t.Errorf("\t%s\tShould format %v as %s, got %s.", failed, f, exp, got)
				continue
			}
			t.Logf("\t%s\tShould format %v as %s.", success, f, exp)
		}

		for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			if _, err := canonical.FormatFloat(f); !errors.Is(err, canonical.ErrUnsupportedFloat) {
				t.Errorf("\t%s\tShould reject %v.", failed, f)
				continue
			}
			t.Logf("\t%s\tShould reject %v.", success, f)
		}
	}
}

func Test_KeyOrder(t *testing.T) {
	t.Log("Given the need to hash maps independent of insertion order.")
	{
		a := map[string]any{}
		a["sender"] = "A"
		a["recipient"] = "B"
		a["amount"] = 5

		b := map[string]any{}
		b["amount"] = 5
		b["sender"] = "A"
		b["recipient"] = "B"

		ha, err := canonical.Hash(a)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to hash the first map: %v", failed, err)
		}

		hb, err := canonical.Hash(b)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to hash the second map: %v", failed, err)
		}

		if ha != hb {
			t.Fatalf("\t%s\tShould get the same hash for both maps.", failed)
		}
		t.Logf("\t%s\tShould get the same hash for both maps.", success)
	}
}
