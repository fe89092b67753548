package handler

import (
	"fmt"

	"github.com/go-logr/logr"
)

// WarningKind classifies a [Warning].
type WarningKind int

const (
	// WarnCorrected reports a value that was clipped or truncated because
	// the record was built in relaxed mode.
	WarnCorrected WarningKind = iota

	// WarnConfig reports an advisory about configuration, such as explicit
	// rounds outside the desired range.
	WarnConfig
)

func (k WarningKind) String() string {
	switch k {
	case WarnCorrected:
		return "corrected"
	case WarnConfig:
		return "config"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a non-fatal signal raised while building a record or deriving
// a configuration.  Warnings are logged and attached to the record.
type Warning struct {
	Kind    WarningKind
	Handler string
	Message string
}

func (w Warning) String() string {
	return w.Handler + ": " + w.Message + " (" + w.Kind.String() + ")"
}

// Reporter receives warnings from the capability policies.  A nil Reporter
// discards them.
type Reporter func(kind WarningKind, msg string)

func (r Reporter) report(kind WarningKind, format string, args ...any) {
	if r != nil {
		r(kind, fmt.Sprintf(format, args...))
	}
}

func resolveLogger(logger logr.Logger) logr.Logger {
	if logger.GetSink() == nil {
		return logr.Discard()
	}
	return logger
}

// logReporter logs through logger and, when sink is non-nil, collects the
// warning there as well.
func logReporter(logger logr.Logger, name string, sink *[]Warning) Reporter {
	logger = resolveLogger(logger)
	return func(kind WarningKind, msg string) {
		logger.Info(msg, "handler", name, "kind", kind.String())
		if sink != nil {
			*sink = append(*sink, Warning{Kind: kind, Handler: name, Message: msg})
		}
	}
}
