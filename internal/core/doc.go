// Package core provides the tabular data-cleaning engine.
//
// The package holds all cleaning logic independent of any transport. The web
// server, the cleanctl CLI and tests all drive the same [Engine].
//
// # Architecture
//
// A run moves every input through the same stages:
//
//   - Parse: [OpenSource] detects the file type and yields a [Source] for CSV,
//     TSV, JSON or Excel input. Text is charset-sniffed and sanitized to UTF-8.
//   - Headers: header cells are slugified and, when a CRM dialect is detected,
//     mapped to canonical field names.
//   - Rows: each row is reconciled to the header width, normalized cell by
//     cell, filtered for irrelevant content and deduplicated.
//   - Export: [Export] renders the cleaned [Grid] as CSV, JSON and Excel, plus
//     one file set per column.
//
// Every stage counts what it changed in the run's [Report].
//
// # Dialect Registry
//
// CRM dialects are registered at init time using [RegisterDialect]:
//
//	core.RegisterDialect(Dialect{
//	    Name:       "hubspot",
//	    Label:      "HubSpot",
//	    Indicators: []string{"record id", "hubspot owner"},
//	    Fields:     map[string]string{"first name": "first_name"},
//	})
//
// [DetectDialect] picks the dialect whose indicators match a header row.
//
// # Chunked Processing
//
// Inputs with more data rows than [Options.ChunkSize] are streamed in batches
// with O(chunk_size) working memory for the row stages. The duplicate set is
// shared across chunks, so output is identical to a single-pass run.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - CLN001-CLN004: Cleaning errors (empty input, unreadable or unsupported files)
//   - FILE001-FILE004: Upload errors (size, encoding, file count)
//   - RUN001-RUN003: Run errors (capacity, cancellation, timeout)
//   - HIST001-HIST002: History errors (not found, disabled)
//   - RATE001: Rate limiting
package core
