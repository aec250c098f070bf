package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying (network timeouts,
	// provider rate limits, busy tools).
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures where retrying cannot help (malformed
	// input, unsupported formats, exhausted quotas).
	ErrPermanent = errors.New("permanent failure")
	// ErrContractViolation marks a stage output that breaks an invariant a
	// later stage depends on. Always permanent.
	ErrContractViolation = errors.New("contract violation")
	// ErrStorage marks artifact persistence failures. Aborts the run.
	ErrStorage = errors.New("storage error")
	// ErrNotFound marks a missing artifact kind. Indicates an ordering bug
	// and is surfaced distinctly from adapter failures.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks unusable configuration detected at stage time.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether the error is tagged for retry. Contract
// violations, storage failures, and missing artifacts are never transient
// even when a transient marker appears further down the chain.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrContractViolation) || errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrPermanent) ||
		errors.Is(err, ErrConfiguration) {
		return false
	}
	return errors.Is(err, ErrTransient)
}

// Kind is the coarse error classification used in logs and API payloads.
type Kind string

const (
	KindTransient     Kind = "transient"
	KindPermanent     Kind = "permanent"
	KindContract      Kind = "contract_violation"
	KindStorage       Kind = "storage"
	KindNotFound      Kind = "not_found"
	KindConfiguration Kind = "configuration"
	KindUnknown       Kind = "unknown"
)

// ErrorDetails carries the classified view of a stage error.
type ErrorDetails struct {
	Kind    Kind
	Message string
	Cause   error
}

// Details classifies err and extracts the human-readable message with the
// sentinel prefix stripped.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	details := ErrorDetails{Kind: classify(err), Cause: errors.Unwrap(err)}
	message := err.Error()
	for _, marker := range []error{ErrContractViolation, ErrStorage, ErrNotFound, ErrConfiguration, ErrPermanent, ErrTransient} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(message, prefix) {
			message = strings.TrimPrefix(message, prefix)
			break
		}
	}
	details.Message = strings.TrimSpace(message)
	return details
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrContractViolation):
		return KindContract
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrPermanent):
		return KindPermanent
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
