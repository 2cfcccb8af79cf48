// Package nodeerrors defines the error categories the core raises.
// Every failure here is internal: none are surfaced to peers beyond a
// silent message/block drop (see spec §7).
package nodeerrors

import (
	"errors"
	"fmt"
)

// Category classifies why a message or block was rejected, for logging.
type Category string

const (
	CategoryMalformed Category = "malformed_message"
	CategoryOrphan    Category = "orphan"
	// CategoryPoW covers both a block whose hash/difficulty fails the
	// proof-of-work test and one whose merkle root doesn't bind to its
	// content — both are failures of the header's claim about the
	// block, checked in the same validation step.
	CategoryPoW               Category = "pow_mismatch"
	CategorySignature         Category = "invalid_signature"
	CategoryDoubleSpend       Category = "double_spend"
	CategoryInsufficientInput Category = "insufficient_input"
	// CategoryFatal marks an unrecoverable host failure (lock
	// poisoning, thread death, an exhausted entropy source) rather than
	// a rejected message or block; see internal/miner's crypto/rand
	// failure path.
	CategoryFatal Category = "fatal"
)

// ValidationError is a rejected block or transaction, carrying the
// category it failed under and a human-readable reason.
type ValidationError struct {
	Category Category
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Reason)
}

// New builds a ValidationError in the given category.
func New(category Category, reason string) *ValidationError {
	return &ValidationError{Category: category, Reason: reason}
}

// Newf builds a ValidationError with a formatted reason.
func Newf(category Category, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Category: category, Reason: fmt.Sprintf(format, args...)}
}

// CategoryOf extracts the category from err if it (or a wrapped cause)
// is a *ValidationError, or "" otherwise.
func CategoryOf(err error) Category {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Category
	}
	return ""
}

// ErrOrphan names the case of a block whose parent is not yet known and
// which has been buffered rather than rejected; it is not itself a
// validation failure. The block-accept pipeline does not return it:
// AcceptBlock returns nil for a buffered orphan, and chain.Insert
// reports an unknown parent as a CategoryOrphan ValidationError.
var ErrOrphan = errors.New("nodeerrors: block parent unknown, buffered as orphan")
