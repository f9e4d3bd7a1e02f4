package disk_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/disk"
)

func chain() []database.Block {
	genesis := database.NewGenesisBlock(1700000000.0)
	next := database.Block{
		Index:        2,
		Timestamp:    1700000012.345678,
		Transactions: []database.Tx{{Sender: "A", Recipient: "B", Amount: 5}},
		Proof:        35293,
		PreviousHash: genesis.Hash(),
	}

	return []database.Block{genesis, next}
}

func TestDiskRoundTrip(t *testing.T) {
	dir := t.TempDir()

	d, err := disk.New(dir)
	require.NoError(t, err)
	defer d.Close()

	blocks := chain()
	for _, block := range blocks {
		require.NoError(t, d.Write(database.NewBlockData(block)))
	}

	_, err = os.Stat(filepath.Join(dir, "2.json"))
	require.NoError(t, err, "each block gets its own file")

	got, err := database.ReadAll(d)
	require.NoError(t, err)
	require.Len(t, got, len(blocks))

	for i := range blocks {
		require.Equal(t, blocks[i].Hash(), got[i].Hash())
	}
	require.True(t, got[0].IsGenesis())
	require.True(t, database.IsChainValid(got))

	blockData, err := d.GetBlock(2)
	require.NoError(t, err)
	require.Equal(t, "dbc2c6b904c901965bb36afd56b6160a33240724102521de1896934215ebd481", blockData.Hash)
}

func TestDiskTamper(t *testing.T) {
	dir := t.TempDir()

	d, err := disk.New(dir)
	require.NoError(t, err)

	for _, block := range chain() {
		require.NoError(t, d.Write(database.NewBlockData(block)))
	}

	file := filepath.Join(dir, "2.json")
	data, err := os.ReadFile(file)
	require.NoError(t, err)

	data = []byte(strings.Replace(string(data), `"amount": 5`, `"amount": 6`, 1))
	require.NoError(t, os.WriteFile(file, data, 0600))

	_, err = database.ReadAll(d)
	require.Error(t, err, "stored hash must no longer match")
}

func TestDiskReset(t *testing.T) {
	dir := t.TempDir()

	d, err := disk.New(dir)
	require.NoError(t, err)

	for _, block := range chain() {
		require.NoError(t, d.Write(database.NewBlockData(block)))
	}

	require.NoError(t, d.Reset())

	got, err := database.ReadAll(d)
	require.NoError(t, err)
	require.Empty(t, got)
}
