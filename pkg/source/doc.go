// Package source reads supplier price-list files into rows for the CLI.
//
// Workbooks (.xlsx, .xlsm) are read with excelize; CSV files may be encoded
// in UTF-8, Windows-1251, or KOI8-R. Each data row becomes a row.Row keyed by
// spreadsheet column letter (A, B, ..., AA), so rule documents can refer to
// columns the same way regardless of file type. With HeaderKeys set, header
// cell text is added as an alias for each column.
//
// This is a diagnostic reader for rule authors. Production ingestion
// (supplier detection, batching, memory guards) lives outside this module.
package source
