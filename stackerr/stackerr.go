// Package stackerr defines the sentinel error kinds the stack's public API
// returns, following the teacher's errGeneric enum style: a small integer
// type with an Error method, so callers can compare with errors.Is instead
// of string matching.
package stackerr

import "github.com/pkg/errors"

// Kind is a sentinel error returned by NetworkStack/StackInterface
// operations. Wrap it with Wrap/Wrapf to attach call-specific context
// without losing errors.Is comparability against the bare Kind.
type Kind uint8

const (
	_ Kind = iota // non-initialized err

	// InvalidInterface is returned when an operation names an interface
	// the stack does not recognize (never added, or already dropped).
	InvalidInterface
	// IllegalArgument is returned for malformed caller input that is not
	// one of the more specific kinds below (e.g. a non-IPv4 address, or an
	// address already assigned to the interface).
	IllegalArgument
	// NoRouteToHost is returned when the routing table has no entry
	// covering a destination address.
	NoRouteToHost
	// InvalidTx is returned by TxHandle.Send when the barrier version
	// captured at handle creation no longer matches the interface's
	// current version: the handle is stale and must be rebuilt.
	InvalidTx
	// IoError wraps a failure from the underlying datalink Sender/Receiver.
	IoError
	// AddrInUse is returned by udp_listen when the requested port is
	// already bound on the local IP.
	AddrInUse
	// AddrNotAvailable is returned by udp_listen for 0.0.0.0 or any other
	// address the local interface does not own.
	AddrNotAvailable
	// InvalidInput is returned when a buffer or argument fails a size or
	// range check before any protocol-specific validation runs.
	InvalidInput
)

var kindStrings = [...]string{
	InvalidInterface: "invalid interface",
	IllegalArgument:  "illegal argument",
	NoRouteToHost:    "no route to host",
	InvalidTx:        "invalid tx handle",
	IoError:          "i/o error",
	AddrInUse:        "address in use",
	AddrNotAvailable: "address not available",
	InvalidInput:     "invalid input",
}

// Error implements the error interface.
func (k Kind) Error() string {
	if int(k) < len(kindStrings) && kindStrings[k] != "" {
		return kindStrings[k]
	}
	return "stackerr: unknown error kind"
}

// Wrap attaches msg as context to a Kind, preserving errors.Is(result, k).
func Wrap(k Kind, msg string) error {
	return errors.Wrap(k, msg)
}

// Wrapf attaches a formatted message as context to a Kind, preserving
// errors.Is(result, k).
func Wrapf(k Kind, format string, args ...any) error {
	return errors.Wrapf(k, format, args...)
}
