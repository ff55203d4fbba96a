// Package trades reconstructs trades from a transaction history and measures
// their performance.
//
// The core functionalities include:
//   - Lot matching: a Collector replays the transactions of an instrument,
//     account by account, and matches closing transactions against open lots
//     first in, first out. Each closing transaction yields a closed Trade,
//     the remaining lots of each account an open Trade valued at market price.
//     Short positions, direction flips and transfers between accounts are supported.
//   - Cost basis: every trade carries both its FIFO entry value and the moving
//     average cost of the account, with and without taxes and fees.
//   - Performance: profit and loss, return, holding period, and the internal
//     rate of return of the trade's cash flows.
//   - Aggregation: a Category sums weighted trades, converting currencies with a
//     CurrencyConverter, and TradesByTaxonomy spreads trades over a Taxonomy
//     according to weighted instrument assignments.
//   - Data files: ledgers, market data and taxonomies are read from
//     human-readable JSON and JSONL files.
//
// This package serves as the foundational logic for the `tla` command-line tool.
package trades
