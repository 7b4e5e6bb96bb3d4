package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across genhash.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"
	FieldOperation = "operation"

	// Safelist entries
	FieldIndex     = "index"
	FieldEntryType = "type"
	FieldEntryName = "name"
	FieldHashKey   = "hash_key"
	FieldAlgorithm = "algorithm"
	FieldSnapshot  = "snapshot"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount      = "count"
	FieldTotalCount = "total_count"
	FieldExpected   = "expected"
	FieldActual     = "actual"

	// Files and paths
	FieldFile   = "file"
	FieldPath   = "path"
	FieldOutput = "output"

	// Network
	FieldHost   = "host"
	FieldStatus = "status"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	syncer := &sync.Syncer{
//	    Logger: logger.ComponentLogger("sync"),
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// EntryFields returns the structured fields identifying one safelist entry.
func EntryFields(index int, entryType, name string) []interface{} {
	return []interface{}{FieldIndex, index, FieldEntryType, entryType, FieldEntryName, name}
}
