package session

import (
	"github.com/lukasstorck/dynamic-virtual-controller/internal/dispatch"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/group"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/keymap"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/preset"
)

type Msg interface{ isSessionMsg() }

// JoinGroup requests membership in a group; sent optimistically, the group
// id is remembered for auto-rejoin after reconnects.
type JoinGroup struct{ GroupID string }

type LeaveGroup struct{}

type RenameOutput struct {
	DeviceID string
	Name     string
}

type SelectOutput struct {
	DeviceID string
	State    bool
}

type SelectPreset struct {
	Slot int
	Name string
}

type SetUserData struct {
	Name  string
	Color string
}

// Key is a raw key transition from a host surface (console, control API).
type Key struct{ Event dispatch.KeyEvent }

type SetCustomKeybinds struct{ Keybinds []keymap.CustomKeybind }

// GetState requests a race-free copy of the supervisor's state.
type GetState struct{ Reply chan View }

type Shutdown struct{}

func (JoinGroup) isSessionMsg()         {}
func (LeaveGroup) isSessionMsg()        {}
func (RenameOutput) isSessionMsg()      {}
func (SelectOutput) isSessionMsg()      {}
func (SelectPreset) isSessionMsg()      {}
func (SetUserData) isSessionMsg()       {}
func (Key) isSessionMsg()               {}
func (SetCustomKeybinds) isSessionMsg() {}
func (GetState) isSessionMsg()          {}
func (Shutdown) isSessionMsg()          {}

// internal messages posted by the connection goroutine and timers

type redial struct{}

type connOpened struct {
	gen  int
	conn Conn
}

type connClosed struct {
	gen int
	err error
}

type inboundFrame struct {
	gen  int
	data []byte
}

func (redial) isSessionMsg()       {}
func (connOpened) isSessionMsg()   {}
func (connClosed) isSessionMsg()   {}
func (inboundFrame) isSessionMsg() {}

// View is a copy of the supervisor state for UIs and tests.
type View struct {
	Status         Status                      `json:"status"`
	UserID         string                      `json:"user_id"`
	UserName       string                      `json:"user_name"`
	UserColor      string                      `json:"user_color"`
	GroupID        string                      `json:"group_id"`
	Group          group.State                 `json:"group"`
	SlotPresets    preset.SlotPresets          `json:"slot_presets"`
	CustomKeybinds []keymap.CustomKeybind      `json:"custom_keybinds"`
	Bindings       map[string][]keymap.Binding `json:"bindings"`
}
