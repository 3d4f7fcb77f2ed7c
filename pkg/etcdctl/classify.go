package etcdctl

import (
	"encoding/json"
	"strings"
)

// ErrorKind names one classified failure mode.
type ErrorKind int

const (
	// DuplicateKey: the transaction put the same key twice. The server
	// rejected it outright, so the operation definitely did not apply.
	DuplicateKey ErrorKind = iota

	// Unrecognized: the server returned a structured error this adapter
	// has no entry for. Effect on the store unknown.
	Unrecognized

	// Adapter: the failure happened somewhere between us and the server
	// (ssh, timeout, connection refused). Effect on the store unknown.
	Adapter
)

func (k ErrorKind) String() string {
	switch k {
	case DuplicateKey:
		return "duplicate-key"
	case Unrecognized:
		return "unrecognized"
	case Adapter:
		return "adapter"
	default:
		panic("unhandled default case")
	}
}

// ClassifiedError is a failed operation sorted into the taxonomy above.
// Definite is the safety-critical bit: true means the operation provably
// did not take effect; false means its effect is unknown, and a checker
// must treat it as possibly applied.
type ClassifiedError struct {
	Kind        ErrorKind
	Definite    bool
	Description string
}

func (e *ClassifiedError) Error() string {
	certainty := "indefinite"
	if e.Definite {
		certainty = "definite"
	}
	return "etcdctl: " + certainty + " " + e.Kind.String() + " error: " + e.Description
}

// structuredError is the JSON object etcdctl prints on stderr for server
// errors. Only the error field is diagnostic; the sibling message field is
// generic retry boilerplate and deliberately not decoded.
type structuredError struct {
	Error string `json:"error"`
}

// knownErrors is the closed table of server error texts this adapter
// recognizes. Anything structured but unlisted classifies as Unrecognized
// rather than failing the match.
var knownErrors = []struct {
	substr   string
	kind     ErrorKind
	definite bool
}{
	{"duplicate key", DuplicateKey, true},
}

// classify sorts the stderr of a command that exited 1. Callers must not
// pass any other exit code here; those propagate unclassified.
func classify(stderr string) *ClassifiedError {
	line, _, _ := strings.Cut(strings.TrimSpace(stderr), "\n")

	if strings.HasPrefix(line, "{") {
		var se structuredError
		if err := json.Unmarshal([]byte(line), &se); err == nil {
			for _, known := range knownErrors {
				if strings.Contains(se.Error, known.substr) {
					return &ClassifiedError{Kind: known.kind, Definite: known.definite, Description: se.Error}
				}
			}
			return &ClassifiedError{Kind: Unrecognized, Definite: false, Description: se.Error}
		}
	}

	return &ClassifiedError{Kind: Adapter, Definite: false, Description: strings.TrimSpace(stderr)}
}
