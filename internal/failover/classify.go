package failover

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// FailureKind is the classification of a failed attempt.
type FailureKind int

const (
	KindNone FailureKind = iota
	KindCanceled
	KindNameResolution
	KindBind
	KindConnect
	KindTimeout
	KindUnexpectedEOF
	KindOther
)

var kindNames = map[FailureKind]string{
	KindNone:           "none",
	KindCanceled:       "canceled",
	KindNameResolution: "name_resolution",
	KindBind:           "bind",
	KindConnect:        "connect",
	KindTimeout:        "timeout",
	KindUnexpectedEOF:  "unexpected_eof",
	KindOther:          "other",
}

func (k FailureKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Retryable reports whether a failure of this kind means the interface itself
// could not establish or sustain a connection, so another interface may succeed.
func (k FailureKind) Retryable() bool {
	switch k {
	case KindNameResolution, KindBind, KindConnect, KindTimeout, KindUnexpectedEOF:
		return true
	default:
		return false
	}
}

// Classifier reports whether err belongs to one failure kind.
type Classifier func(err error) bool

// KindClassifier pairs a classifier with the kind it detects.
type KindClassifier struct {
	Kind     FailureKind
	Classify Classifier
}

// ClassifierGroup is evaluated in order; the first match decides the kind.
type ClassifierGroup []KindClassifier

// Classifiers is the full, ordered classification policy. Cancellation is
// checked first so a canceled dial is never mistaken for a connect failure.
var Classifiers = ClassifierGroup{
	{KindCanceled, Canceled},
	{KindNameResolution, NameResolution},
	{KindBind, Bind},
	{KindConnect, Connect},
	{KindTimeout, Timeout},
	{KindUnexpectedEOF, UnexpectedEOF},
}

// Kind returns the first matching kind, KindOther when nothing matches and
// KindNone for a nil error.
func (g ClassifierGroup) Kind(err error) FailureKind {
	if err == nil {
		return KindNone
	}
	for _, c := range g {
		if c.Classify(err) {
			return c.Kind
		}
	}
	return KindOther
}

// Classify applies the full policy to err.
func Classify(err error) FailureKind {
	return Classifiers.Kind(err)
}

// IsRetryable reports whether err justifies failing over to the next interface.
func IsRetryable(err error) bool {
	return Classify(err).Retryable()
}

func Canceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func NameResolution(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func Bind(err error) bool {
	return errors.Is(err, ErrInterfaceUnusable) ||
		errors.Is(err, syscall.EADDRNOTAVAIL) ||
		errors.Is(err, syscall.EADDRINUSE)
}

func Connect(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return true
	}
	return false
}

func Timeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func UnexpectedEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
