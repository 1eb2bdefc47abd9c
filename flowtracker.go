package safegmx

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/sirupsen/logrus"
)

// FlowTracker assigns each signal an 8-char correlation id and tags
// every log line and error with it, emitting start/step/complete/fail
// markers at component boundaries. It is stateless
// beyond the signalId → corrID derivation, which is pure.
type FlowTracker struct {
	log *logrus.Logger
}

// NewFlowTracker wraps log (nil defaults to logrus.StandardLogger).
func NewFlowTracker(log *logrus.Logger) *FlowTracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FlowTracker{log: log}
}

// CorrelationID derives an 8-char hex id from signalId. The derivation
// is pure so the same signalId always yields the same id, including
// across process restarts.
func CorrelationID(signalId string) string {
	sum := sha256.Sum256([]byte(signalId))
	return hex.EncodeToString(sum[:])[:8]
}

func (f *FlowTracker) fields(signalId, component string) logrus.Fields {
	return logrus.Fields{
		"corrID":    CorrelationID(signalId),
		"signalId":  signalId,
		"component": component,
	}
}

// Start logs a component's entry into processing a signal.
func (f *FlowTracker) Start(signalId, component string) {
	f.log.WithFields(f.fields(signalId, component)).Info("start")
}

// Step logs an intermediate checkpoint within a component, with
// free-form extra fields merged in (e.g. tradeId once minted).
func (f *FlowTracker) Step(signalId, component, step string, extra logrus.Fields) {
	fields := f.fields(signalId, component)
	fields["step"] = step
	for k, v := range extra {
		fields[k] = v
	}
	f.log.WithFields(fields).Info("step")
}

// Complete logs a component finishing successfully.
func (f *FlowTracker) Complete(signalId, component string, extra logrus.Fields) {
	fields := f.fields(signalId, component)
	for k, v := range extra {
		fields[k] = v
	}
	f.log.WithFields(fields).Info("complete")
}

// Fail logs a component failing with a TradeError.
func (f *FlowTracker) Fail(signalId, component string, err *TradeError) {
	fields := f.fields(signalId, component)
	fields["code"] = err.Code
	fields["kind"] = err.Kind
	fields["severity"] = err.Severity
	fields["retriable"] = err.Retriable
	f.log.WithFields(fields).Warn("fail")
}
