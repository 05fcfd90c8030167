// Package catalog defines where course records come from and sanitizes
// them at the ingestion boundary.
//
// Spreadsheet exports and hand-written files carry blanks, "nan" cells,
// comma decimal separators and repeated rows. The helpers in this package
// turn those into clean curriculum.Record values so the graph builder only
// ever sees sanitized data.
package catalog
