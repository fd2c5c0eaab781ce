// Package core provides the business logic for tabular file transformation.
//
// This package holds all domain logic independent of any UI or transport
// layer. The web handlers and the command-line tool both drive it.
//
// # Tables
//
// [Load] parses a CSV or XLSX upload into a [Table]: an ordered list of
// named columns, each with a [Kind] (integer, float or text) fixed when the
// file is loaded. Missing values are carried per cell.
//
// # Operations
//
// Every operation returns a new table and leaves its input untouched:
//
//   - [RemoveDuplicates] keeps the first occurrence of each distinct row.
//   - [FillMissingNumeric] replaces missing numeric cells with the column mean.
//   - [Project] keeps the named columns in the given order.
//   - [ColumnStats] summarizes one column.
//   - [Visualize] extracts up to two numeric series for a bar chart, and
//     [RenderBarChart] draws them as a PNG.
//   - [Convert] serializes a table as CSV or a single-sheet workbook.
//
// [RunPipeline] chains these for one file.
//
// # Sessions
//
// [Service] is the session registry. Each [Session] holds the files a
// client uploaded along with the choices made for each file, applied with
// [Session.Apply]. Idle sessions expire after [ServiceConfig.SessionTTL].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - FILE001-FILE005: File errors (size, format, parse)
//   - CNV001, VIZ001: Conversion and chart errors
//   - VAL001-VAL002: Bad column names and commands
//   - SES001-SES003: Session and file handle errors
//   - UPL002-UPL005: Upload capacity and cancellation
//
// # Audit Logging
//
// Uploads, commands and downloads are recorded through an [AuditLogger],
// in PostgreSQL when configured and in memory otherwise.
package core
