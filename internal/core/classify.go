package core

import (
	"errors"
	"strings"
)

// Kind classifies a job failure for retry-delay selection.
type Kind int

const (
	// KindTransient covers download failures, dispatch timeouts and
	// anything else not recognized as a printer outage. Short backoff.
	KindTransient Kind = iota
	// KindPrinterUnavailable covers an offline, disconnected or powered
	// off device. Long backoff.
	KindPrinterUnavailable
	// KindInvalidInput covers malformed submissions. These are rejected
	// at enqueue time and never enter the queue.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindPrinterUnavailable:
		return "printer_unavailable"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "transient"
	}
}

// DispatchError is a classified failure reported by a printer dispatcher.
// Dispatchers assign the kind at the point of failure so the queue does
// not have to re-derive it from prose.
type DispatchError struct {
	Kind Kind
	Err  error
}

func (e *DispatchError) Error() string {
	if e.Err == nil {
		return "dispatch failed"
	}
	return e.Err.Error()
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// printerDownPhrases is the legacy keyword classification, kept as a
// fallback for errors that do not carry a typed kind.
var printerDownPhrases = []string{
	"not connected",
	"offline",
	"powered off",
	"turned off",
	"unreachable",
	"no such device",
}

// Classify maps a failure to its retry tier. A typed DispatchError wins;
// otherwise the error message is scanned for printer-outage keywords.
func Classify(err error) Kind {
	if err == nil {
		return KindTransient
	}
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range printerDownPhrases {
		if strings.Contains(msg, phrase) {
			return KindPrinterUnavailable
		}
	}
	return KindTransient
}
