package ai

import (
	"errors"
	"fmt"
)

// User-facing replies for failed generations. Raw provider errors are never
// shown to callers.
const (
	OutageReply  = "Sorry, I can't reach my AI provider right now 😔 Please try again in a little while."
	GenericReply = "Oops, something went wrong on my side. Please try again."
	EmptyReply   = "Sorry, I couldn't generate a response this time. Could you try rephrasing?"
)

var (
	// ErrEmptyResponse marks a completed generation that produced no usable text.
	ErrEmptyResponse = errors.New("model returned no content")
	// ErrAborted marks a stream that closed without a terminal event.
	ErrAborted = errors.New("generation aborted")
)

// ProviderError wraps an explicit failure reported by the LLM boundary.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// UnexpectedError wraps any other fault raised while generating.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected generation failure: %v", e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// Outcome classifies how a generation ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeEmpty
	OutcomeProviderError
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeProviderError:
		return "provider_error"
	default:
		return "unexpected"
	}
}

// Classify maps an error onto an Outcome. A nil error is OutcomeOK.
func Classify(err error) Outcome {
	var providerErr *ProviderError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrEmptyResponse):
		return OutcomeEmpty
	case errors.As(err, &providerErr):
		return OutcomeProviderError
	default:
		return OutcomeUnexpected
	}
}

// FallbackText returns the fixed reply shown for a failed outcome.
func FallbackText(o Outcome) string {
	switch o {
	case OutcomeEmpty:
		return EmptyReply
	case OutcomeProviderError:
		return OutageReply
	default:
		return GenericReply
	}
}

// Reply is the result of a complete, non-streaming generation.
type Reply struct {
	Text    string
	Outcome Outcome
	Err     error
}

// OK reports whether the reply came from the model rather than a fallback.
func (r Reply) OK() bool {
	return r.Outcome == OutcomeOK
}

func fallbackReply(err error) Reply {
	outcome := Classify(err)
	return Reply{Text: FallbackText(outcome), Outcome: outcome, Err: err}
}
