package mempool_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	type table struct {
		name string
		txs  []database.Tx
	}

	tt := []table{
		{
			name: "basic",
			txs: []database.Tx{
				{Sender: "A", Recipient: "B", Amount: 5},
				{Sender: "B", Recipient: "C", Amount: 2},
				{Sender: "A", Recipient: "B", Amount: 5},
				{Sender: "C", Recipient: "A", Amount: 0},
			},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					for i, tx := range tst.txs {
						if n := mp.Add(tx); n != i+1 {
							t.Fatalf("\t%s\tTest %d:\tShould get back count %d, got %d.", failed, testID, i+1, n)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to add every transaction, duplicates included.", success, testID)

					for i, tx := range mp.Copy() {
						if tx != tst.txs[i] {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.txs[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back transactions in arrival order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back transactions in arrival order.", success, testID)

					mp.Truncate()
					if mp.Count() != 0 || len(mp.Copy()) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould have an empty pool after truncate.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould have an empty pool after truncate.", success, testID)

					if n := mp.Add(tst.txs[0]); n != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould start counting again after truncate, got %d.", failed, testID, n)
					}
					t.Logf("\t%s\tTest %d:\tShould start counting again after truncate.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestConcurrentAdd(t *testing.T) {
	t.Log("Given the need to accept transactions from many goroutines.")
	{
		const goroutines = 10
		const perG = 100

		mp := mempool.New()

		var wg sync.WaitGroup
		wg.Add(goroutines)
		for g := 0; g < goroutines; g++ {
			go func(g int) {
				defer wg.Done()
				for i := 0; i < perG; i++ {
					mp.Add(database.Tx{Sender: fmt.Sprintf("g%d", g), Recipient: "r", Amount: int64(i)})
					if i%25 == 0 {
						mp.Copy()
					}
				}
			}(g)
		}
		wg.Wait()

		txs := mp.Copy()
		if len(txs) != goroutines*perG || mp.Count() != goroutines*perG {
			t.Fatalf("\t%s\tShould not lose or duplicate transactions, got %d.", failed, len(txs))
		}
		t.Logf("\t%s\tShould not lose or duplicate transactions.", success)

		seen := make(map[database.Tx]bool)
		last := make(map[string]int64)
		for _, tx := range txs {
			if seen[tx] {
				t.Fatalf("\t%s\tShould see each transaction once, saw %s twice.", failed, tx)
			}
			seen[tx] = true

			if prev, ok := last[tx.Sender]; ok && tx.Amount <= prev {
				t.Fatalf("\t%s\tShould keep each sender's arrival order, got %s after %d.", failed, tx, prev)
			}
			last[tx.Sender] = tx.Amount
		}
		t.Logf("\t%s\tShould see each transaction once in arrival order.", success)
	}
}
