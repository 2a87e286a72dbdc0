package protocol

// Server -> Client
// config:            user_id, user_name?, user_color?
// group_state:       group_id, users[], devices[]
// activity_and_ping: users?: {id: [last_activity_time, ping]}, devices?: {id: ping}
// ping:              id
//
// Client -> Server
// pong:             id
// join_group:       group_id
// leave_group:      -
// rename_output:    id, name
// select_output:    id, state (bool)
// update_user_data: name, color
// keypress:         device_id, code, state (1=press, 0=release)

const (
	TypeConfig          = "config"
	TypeGroupState      = "group_state"
	TypeActivityAndPing = "activity_and_ping"
	TypePing            = "ping"

	TypePong           = "pong"
	TypeJoinGroup      = "join_group"
	TypeLeaveGroup     = "leave_group"
	TypeRenameOutput   = "rename_output"
	TypeSelectOutput   = "select_output"
	TypeUpdateUserData = "update_user_data"
	TypeKeypress       = "keypress"
)

// Keybind is a [key, event] pair as it appears inside keybind_presets.
// Either side may be null, meaning unassigned.
type Keybind [2]*string

func (k Keybind) Key() string {
	if k[0] == nil {
		return ""
	}
	return *k[0]
}

func (k Keybind) Event() string {
	if k[1] == nil {
		return ""
	}
	return *k[1]
}

type User struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Color              string   `json:"color"`
	ConnectedDeviceIDs []string `json:"connected_device_ids"`
	LastActivityTime   float64  `json:"last_activity_time"`
	LastPing           *float64 `json:"last_ping"`
}

type Device struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Slot           int                  `json:"slot"`
	KeybindPresets map[string][]Keybind `json:"keybind_presets"`
	AllowedEvents  []string             `json:"allowed_events"`
	LastPing       *float64             `json:"last_ping"`
}

// Inbound is the sealed set of server-to-client messages.
type Inbound interface{ isInbound() }

type ConfigMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	UserColor string `json:"user_color,omitempty"`
}

type GroupStateMessage struct {
	Type    string   `json:"type"`
	GroupID string   `json:"group_id"`
	Users   []User   `json:"users,omitempty"`
	Devices []Device `json:"devices,omitempty"`
}

// ActivityAndPingMessage carries telemetry only. The user value is a
// [last_activity_time, ping] pair; ping entries may be null.
type ActivityAndPingMessage struct {
	Type    string                 `json:"type"`
	Users   map[string][2]*float64 `json:"users,omitempty"`
	Devices map[string]*float64    `json:"devices,omitempty"`
}

type PingMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (ConfigMessage) isInbound()          {}
func (GroupStateMessage) isInbound()      {}
func (ActivityAndPingMessage) isInbound() {}
func (PingMessage) isInbound()            {}

type PongMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type JoinGroupMessage struct {
	Type    string `json:"type"`
	GroupID string `json:"group_id"`
}

type LeaveGroupMessage struct {
	Type string `json:"type"`
}

type RenameOutputMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SelectOutputMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	State bool   `json:"state"`
}

type UpdateUserDataMessage struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type KeypressMessage struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id"`
	Code     string `json:"code"`
	State    int    `json:"state"`
}
