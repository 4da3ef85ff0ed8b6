// Package core holds the table logic of sheetsearch: loading a spreadsheet
// into memory, searching it, paging it and exporting search results.
//
// Nothing here knows about HTTP. The web server and the command line tool
// both drive the same types.
//
// # Data Model
//
// A [Table] is a header plus text rows, all of the same width. A [Snapshot]
// wraps a table with its display filename and load time. The [Store] holds
// one active snapshot; loading a new file swaps the pointer, so readers
// always see a complete table.
//
// # Ingestion
//
// [Ingestor] reads csv, xlsx and xls files:
//
//   - csv is decoded from UTF-8, UTF-8 with BOM or UTF-16 with BOM; invalid
//     bytes become U+FFFD
//   - xlsx and xls read the first sheet
//   - blank headers become "Unnamed: N" and duplicates get ".1", ".2" suffixes
//
// Parsing is bounded by a file size cap, a cell cap and the
// [IngestLimiter], which limits how many files are parsed at once.
//
// # Search and Paging
//
// [Searcher] matches a literal, case-insensitive substring in one column or
// in all of them. Rows are scanned in parallel chunks and returned in table
// order. [PageLimits.Paginate] computes 1-based page bounds; out of range
// pages are empty rather than errors.
//
// # Export
//
// [ExportRows] decodes the records a client sends back, keeping the
// first-seen column order. [EncodeExport] writes them as csv or xlsx and
// the [Service] stores the file under a "search_results_" name.
//
// # Error Handling
//
// Service operations return [*Error] with a [Kind]:
//
//   - KindInvalidInput: the request was rejected, nothing changed
//   - KindIngestion: the file could not be read as a table
//   - KindInternal: anything else
//
// [MapError] turns any error into a user message with a support code
// (DATA001, FILE001-FILE007, SRCH001-SRCH002, EXP001-EXP002, UPL002-UPL005,
// RATE001, ERR000).
package core
