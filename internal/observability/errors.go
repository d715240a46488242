package observability

import (
	"errors"
	"fmt"
)

// AggregateErrors joins the non-nil errs collected while running operation,
// logs them once on logger (the global logger when nil) and returns the
// joined error, or nil when nothing failed.
func AggregateErrors(logger Logger, operation string, errs []error, fields ...Field) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	if logger == nil {
		logger = Log()
	}
	joined := errors.Join(failed...)
	logger.Error(operation+" incomplete", append(fields,
		F("failures", len(failed)),
		F("error", joined))...)
	return fmt.Errorf("%s: %d step(s) failed: %w", operation, len(failed), joined)
}
