// Package errors provides structured error handling for vigil.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Watch setup errors (synchronous, from Start)
//   - 3XX: Watch runtime errors (asynchronous, terminal)
//   - 4XX: Concurrency/locking errors
//   - 5XX: Journal and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategorySetup indicates errors establishing a watch.
	CategorySetup Category = "SETUP"
	// CategoryWatch indicates runtime watch errors.
	CategoryWatch Category = "WATCH"
	// CategoryLock indicates cross-process locking errors.
	CategoryLock Category = "LOCK"
	// CategoryInternal indicates journal and unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Watch setup errors (200-299)
	ErrCodeRootNotFound = "ERR_201_ROOT_NOT_FOUND"
	ErrCodeRootNotDir   = "ERR_202_ROOT_NOT_DIR"
	ErrCodeWatchSetup   = "ERR_203_WATCH_SETUP"

	// Watch runtime errors (300-399)
	ErrCodeWatchLost = "ERR_301_WATCH_LOST"

	// Locking errors (400-499)
	ErrCodeAlreadyRunning = "ERR_401_ALREADY_RUNNING"
	ErrCodeLockFailed     = "ERR_402_LOCK_FAILED"

	// Journal and internal errors (500-599)
	ErrCodeJournal  = "ERR_501_JOURNAL"
	ErrCodeInternal = "ERR_502_INTERNAL"
)

// categoryFromCode derives the error category from the code prefix.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategorySetup
	case '3':
		return CategoryWatch
	case '4':
		return CategoryLock
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity from the code.
// Setup and runtime watch errors are fatal to the watch; journal errors
// degrade operation but never stop delivery.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig, CategorySetup, CategoryWatch, CategoryLock:
		return SeverityFatal
	default:
		if code == ErrCodeJournal {
			return SeverityWarning
		}
		return SeverityError
	}
}
