// Package core provides the business logic of the data sweeper.
//
// The package holds every operation the HTTP layer exposes, independent of
// any UI or transport. It can be used by web handlers, CLI tools, or tests
// without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Format Registry: each tabular file format registers a reader and a
//     writer keyed by extension (see subpackage formats).
//   - Sessions: an in-memory [SessionStore] keeps each user's uploaded files
//     and their working tables until the session expires.
//   - Service: the main entry point for all operations (upload, inspect,
//     clean, select, export, merge).
//   - Upload Limiter: bounds how many files are parsed at once.
//
// # Format Registry
//
// Formats are registered at init time using [RegisterFormat]:
//
//	core.RegisterFormat(core.FormatDefinition{
//	    Key:   "csv",
//	    Ext:   ".csv",
//	    MIME:  "text/csv",
//	    Label: "CSV",
//	    Read:  ReadCSV,
//	    Write: WriteCSV,
//	})
//
// Import the formats package for its side effects to register the built-in
// CSV and Excel formats:
//
//	import _ "github.com/JonMunkholm/datasweeper/internal/core/formats"
//
// # Working Tables
//
// Each uploaded file becomes a working table ([frame.Table]) owned by its
// session. Cleaning operations mutate the working table in place. Column
// selection stores a projection that export, charts and merge read; preview,
// summary and correlation always see every column.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE006: File errors (type, parse, size)
//   - MRG001-MRG002: Merge errors
//   - TBL001-TBL002: Column errors
//   - SES001-SES003: Session errors
//   - VAL001-VAL003: Request validation errors
//   - UPL002-UPL005: Upload errors (busy, cancelled, timeout)
package core
