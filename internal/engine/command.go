package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommandID is a command's unique token. The scheduler orders commands
// sharing a tick by comparing IDs as strings, so IDs from one issuer must
// sort in issue order: use NewCommandID or SequentialID.
type CommandID string

// NewCommandID returns a globally unique, time-ordered (UUIDv7) ID.
func NewCommandID() CommandID {
	return CommandID(uuid.Must(uuid.NewV7()).String())
}

// SequentialID formats n as a fixed-width ID so lexical order matches
// numeric order.
func SequentialID(n uint64) CommandID {
	return CommandID(fmt.Sprintf("%020d", n))
}

// PlayerID identifies the issuer of a command.
type PlayerID uint64

// SystemPlayer may act on anything (scripts, seeding, admin API).
const SystemPlayer PlayerID = 0

// Kind is a command's type tag on the wire.
type Kind string

// Command is an immutable request to change world state at a tick.
// Validate must not mutate anything. Execute re-checks its preconditions
// and either applies the whole effect or none of it.
type Command interface {
	ID() CommandID
	Player() PlayerID
	TargetTick() uint64
	Kind() Kind
	Validate(w *World) Result
	Execute(w *World) Result
}

// Status is the outcome class of a command.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusInvalidState
	StatusInsufficientResources
	StatusInvalidTarget
	StatusUnauthorized
)

var statusNames = [...]string{
	"success",
	"failed",
	"invalid_state",
	"insufficient_resources",
	"invalid_target",
	"unauthorized",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", s)
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for i, n := range statusNames {
		if n == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Result is what a command yields. Callers branch on Status, never Message.
type Result struct {
	Status  Status            `json:"status"`
	Message string            `json:"message"`
	Payload map[string]string `json:"payload,omitempty"`
}

// OK reports whether the status is StatusSuccess.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Succeed builds a success result.
func Succeed(format string, args ...any) Result {
	return Result{Status: StatusSuccess, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a non-success result.
func Fail(status Status, format string, args ...any) Result {
	return Result{Status: status, Message: fmt.Sprintf(format, args...)}
}

// With returns a copy of r carrying an extra payload entry.
func (r Result) With(key, value string) Result {
	p := make(map[string]string, len(r.Payload)+1)
	for k, v := range r.Payload {
		p[k] = v
	}
	p[key] = value
	r.Payload = p
	return r
}

// ExecutionRecord is the immutable audit entry for one executed command.
type ExecutionRecord struct {
	Command    Command   `json:"-"`
	ID         CommandID `json:"id"`
	Kind       Kind      `json:"kind"`
	Player     PlayerID  `json:"player"`
	TargetTick uint64    `json:"target_tick"`
	Tick       uint64    `json:"tick"` // tick it actually ran at
	Late       bool      `json:"late,omitempty"`
	Result     Result    `json:"result"`
	ExecutedAt time.Time `json:"executed_at"`
}
