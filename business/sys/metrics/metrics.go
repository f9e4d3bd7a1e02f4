// Package metrics constructs the metrics the application will track.
package metrics

import (
	"context"
	"expvar"
	"runtime"
)

// This holds the single instance of the metrics value needed for
// collecting metrics. The expvar package is already based on a singleton
// for the different metrics that are registered with the package so there
// isn't much choice here.
var m *metrics

// =============================================================================

// metrics represents the set of metrics we gather. These fields are
// safe to be accessed concurrently thanks to expvar. No extra abstraction is
// required.
type metrics struct {
	goroutines      *expvar.Int
	requests        *expvar.Int
	errors          *expvar.Int
	panics          *expvar.Int
	blocksMined     *expvar.Int
	miningCancelled *expvar.Int
	proofAttempts   *expvar.Int
	transactions    *expvar.Int
}

// init constructs the metrics value that will be used to capture metrics.
// The metrics value is stored in a package level variable since everything
// inside of expvar is registered as a singleton.
func init() {
	m = &metrics{
		goroutines:      expvar.NewInt("goroutines"),
		requests:        expvar.NewInt("requests"),
		errors:          expvar.NewInt("errors"),
		panics:          expvar.NewInt("panics"),
		blocksMined:     expvar.NewInt("blocks_mined"),
		miningCancelled: expvar.NewInt("mining_cancelled"),
		proofAttempts:   expvar.NewInt("proof_attempts"),
		transactions:    expvar.NewInt("transactions_submitted"),
	}
}

// =============================================================================

// Metrics will be supported through the context.

// ctxKey represents the type of value for the context key.
type ctxKey int

// key is how metric values are stored/retrieved.
const key ctxKey = 1

// =============================================================================

// Set sets the metrics data into the context.
func Set(ctx context.Context) context.Context {
	return context.WithValue(ctx, key, m)
}

// AddGoroutines refreshes the goroutine metric every 100 requests.
func AddGoroutines(ctx context.Context) {
	if v, ok := ctx.Value(key).(*metrics); ok {
		if v.requests.Value()%100 == 0 {
			v.goroutines.Set(int64(runtime.NumGoroutine()))
		}
	}
}

// AddRequests increments the request metric by 1.
func AddRequests(ctx context.Context) {
	if v, ok := ctx.Value(key).(*metrics); ok {
		v.requests.Add(1)
	}
}

// AddErrors increments the errors metric by 1.
func AddErrors(ctx context.Context) {
	if v, ok := ctx.Value(key).(*metrics); ok {
		v.errors.Add(1)
	}
}

// AddPanics increments the panics metric by 1.
func AddPanics(ctx context.Context) {
	if v, ok := ctx.Value(key).(*metrics); ok {
		v.panics.Add(1)
	}
}

// AddTransactions increments the submitted transactions metric by 1.
func AddTransactions(ctx context.Context) {
	if v, ok := ctx.Value(key).(*metrics); ok {
		v.transactions.Add(1)
	}
}

// =============================================================================

// Mining records the statistics reported by the mining worker.
type Mining struct{}

// AddBlocksMined increments the blocks mined metric by 1.
func (Mining) AddBlocksMined() {
	m.blocksMined.Add(1)
}

// AddMiningCancelled increments the cancelled mining metric by 1.
func (Mining) AddMiningCancelled() {
	m.miningCancelled.Add(1)
}

// AddProofAttempts adds the number of proofs tried to find a solution.
func (Mining) AddProofAttempts(n uint64) {
	m.proofAttempts.Add(int64(n))
}
