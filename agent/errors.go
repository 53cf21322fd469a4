package agent

import "fmt"

// ProtocolViolation reports an assistant turn that did not contain exactly
// one extractable command. It is recovered locally with a corrective
// observation, bounded by Config.FormatErrorLimit.
type ProtocolViolation struct {
	Actions int // number of command blocks found
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("expected exactly one bash code block in assistant response, found %d", e.Actions)
}

// Rejection is returned by a confirmation hook to veto a command without
// failing the run. The message is fed back to the model as an observation.
type Rejection struct {
	Message string
}

func (e *Rejection) Error() string {
	return e.Message
}
