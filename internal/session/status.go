package session

// Status is the connection lifecycle state. There is exactly one status
// model: transport readiness and group membership are never derived from
// anything else.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusJoinedGroup
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusJoinedGroup:
		return "joined_group"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "connected":
		*s = StatusConnected
	case "joined_group":
		*s = StatusJoinedGroup
	default:
		*s = StatusDisconnected
	}
	return nil
}
