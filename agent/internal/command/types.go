package command

import "fmt"

// Kind is the closed set of command types the agent understands. Dispatch
// is an exhaustive switch in the executor; adding a Kind without a handler
// arm is a compile-visible omission, not a silent lookup miss.
type Kind string

const (
	KindShowMessage       Kind = "show_message"
	KindPlayChime         Kind = "play_chime"
	KindIncreaseHeartbeat Kind = "increase_heartbeat"
	KindLockScreen        Kind = "lock_screen"
	KindPing              Kind = "ping"
)

// ParseKind validates a wire command type.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindShowMessage, KindPlayChime, KindIncreaseHeartbeat, KindLockScreen, KindPing:
		return k, nil
	}
	return "", fmt.Errorf("unsupported command type %q", s)
}
