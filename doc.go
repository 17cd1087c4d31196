// Package taxlot maintains the tax-lot ledger of an investment portfolio.
//
// The transaction log (buys, sells and dividend reinvestments) is the single
// source of truth. From it the ledger derives:
//   - Lots: slices of acquired inventory, each with its own cost base,
//     acquisition time and CGT discount threshold.
//   - Disposals: the lot slices consumed by each sell, with net proceeds,
//     allocated cost base, realised gain and discount eligibility.
//   - Positions: per symbol aggregates of the open lots, optionally valued
//     with price quotes.
//
// Sells are matched against open lots by a MatchMethod (FIFO, HIFO or an
// explicit SpecificID allocation), brokerage fees are charged according to a
// FeeAllocation strategy, and all arithmetic is done with decimals.
//
// Lots and disposals are a materialised view: Rebuild replays the log from
// scratch and reproduces them identically, which is how edits and deletions
// of past transactions are applied.
//
// Persistence is abstracted by the Store interface. MemoryStore is provided
// here, the jsonstore and sqlitestore packages provide file backends.
//
// This package serves as the foundational logic for the `cgt` command-line
// tool.
package taxlot
