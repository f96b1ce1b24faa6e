package retry

import (
	"errors"

	"github.com/vvka-141/vload/pkg/vload"
)

// ErrorClassifier decides whether a failed operation may be recovered and retried.
type ErrorClassifier interface {
	IsRecoverable(err error) bool
}

// ClassifierFunc adapts a function to ErrorClassifier.
type ClassifierFunc func(err error) bool

// IsRecoverable calls f(err).
func (f ClassifierFunc) IsRecoverable(err error) bool {
	return f(err)
}

// SentinelClassifier treats errors matching any of its sentinels as recoverable.
type SentinelClassifier struct {
	sentinels []error
}

// NewSentinelClassifier creates a classifier matching the given sentinels with errors.Is.
func NewSentinelClassifier(sentinels ...error) *SentinelClassifier {
	return &SentinelClassifier{sentinels: sentinels}
}

// IsRecoverable reports whether err matches one of the sentinels.
// Connection failures never do, even if they also carry a sentinel.
func (c *SentinelClassifier) IsRecoverable(err error) bool {
	if err == nil || errors.Is(err, vload.ErrConnection) {
		return false
	}
	for _, s := range c.sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// RelationMissing returns the classifier for the create-and-redo case.
func RelationMissing() *SentinelClassifier {
	return NewSentinelClassifier(vload.ErrRelationMissing)
}
