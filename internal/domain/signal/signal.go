// Package signal provides the remote signal entity polled from the command channel.
package signal

// CommandKind represents a remote navigation command.
type CommandKind string

const (
	CommandNone    CommandKind = "none"
	CommandNext    CommandKind = "next"
	CommandPrev    CommandKind = "prev"
	CommandRefresh CommandKind = "refresh"
)

// ParseCommandKind converts a wire value to a CommandKind.
// Unknown and empty values map to CommandNone.
func ParseCommandKind(s string) CommandKind {
	switch CommandKind(s) {
	case CommandNext, CommandPrev, CommandRefresh:
		return CommandKind(s)
	default:
		return CommandNone
	}
}

// Direction returns the navigation direction for next/prev, 0 otherwise.
func (k CommandKind) Direction() int {
	switch k {
	case CommandNext:
		return 1
	case CommandPrev:
		return -1
	default:
		return 0
	}
}

// Command is a navigation command with its de-duplication token.
type Command struct {
	Kind     CommandKind
	IssuedAt string // Opaque token; empty when absent
}

// Remote is one observation of the command channel.
// Both fields are edge-triggered: they are acted upon only when they differ
// from the previously observed value.
type Remote struct {
	RefreshToken string // Opaque token; empty when absent
	Command      Command
}
