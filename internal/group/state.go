package group

import (
	"slices"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/protocol"
)

// Keybind maps a physical key code to a logical output event. An empty
// string on either side means unassigned.
type Keybind struct {
	Key   string `json:"key"`
	Event string `json:"event"`
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
	// ConnectedUserIDs is derived from the user list on every replace,
	// never taken from the wire.
	ConnectedUserIDs []string `json:"connected_user_ids"`
}

// State is the authoritative snapshot of the current group. Values are
// replaced wholesale; reducers return a new State and never mutate their
// receiver, so a consumer holding an old State keeps a consistent view.
type State struct {
	Users   []User   `json:"users"`
	Devices []Device `json:"devices"`
}

func Empty() State {
	return State{Users: []User{}, Devices: []Device{}}
}

// FromWire builds a snapshot from a group_state message: devices are sorted
// ascending by slot and each device's connected-user set is derived by
// scanning the accompanying user list.
func FromWire(msg protocol.GroupStateMessage) State {
	users := make([]User, 0, len(msg.Users))
	for _, u := range msg.Users {
		users = append(users, User{
			ID:                 u.ID,
			Name:               u.Name,
			Color:              u.Color,
			ConnectedDeviceIDs: slices.Clone(u.ConnectedDeviceIDs),
			LastActivityTime:   u.LastActivityTime,
			LastPing:           u.LastPing,
		})
	}

	devices := make([]Device, 0, len(msg.Devices))
	for _, d := range msg.Devices {
		connectedUserIDs := []string{}
		for _, u := range msg.Users {
			if slices.Contains(u.ConnectedDeviceIDs, d.ID) {
				connectedUserIDs = append(connectedUserIDs, u.ID)
			}
		}

		presets := make(map[string][]Keybind, len(d.KeybindPresets))
		for name, binds := range d.KeybindPresets {
			converted := make([]Keybind, 0, len(binds))
			for _, kb := range binds {
				converted = append(converted, Keybind{Key: kb.Key(), Event: kb.Event()})
			}
			presets[name] = converted
		}

		devices = append(devices, Device{
			ID:               d.ID,
			Name:             d.Name,
			Slot:             d.Slot,
			KeybindPresets:   presets,
			AllowedEvents:    slices.Clone(d.AllowedEvents),
			LastPing:         d.LastPing,
			ConnectedUserIDs: connectedUserIDs,
		})
	}

	slices.SortFunc(devices, func(a, b Device) int { return a.Slot - b.Slot })

	return State{Users: users, Devices: devices}
}

// ApplyTelemetry overwrites last-activity and last-ping for the entities
// named in the update maps. It never adds or removes entities; only a full
// replace does that. A zero activity value keeps the previous one, a zero
// or absent ping clears it.
func ApplyTelemetry(s State, users map[string][2]*float64, devices map[string]*float64) State {
	next := State{
		Users:   slices.Clone(s.Users),
		Devices: slices.Clone(s.Devices),
	}

	for i, u := range next.Users {
		update, ok := users[u.ID]
		if !ok {
			continue
		}
		if activity := update[0]; activity != nil && *activity != 0 {
			next.Users[i].LastActivityTime = *activity
		}
		next.Users[i].LastPing = normalizePing(update[1])
	}

	for i, d := range next.Devices {
		ping, ok := devices[d.ID]
		if !ok {
			continue
		}
		next.Devices[i].LastPing = normalizePing(ping)
	}

	return next
}

func normalizePing(ping *float64) *float64 {
	if ping == nil || *ping == 0 {
		return nil
	}
	value := *ping
	return &value
}

func (s State) UserByID(id string) (User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

func (s State) UsersByID() map[string]User {
	byID := make(map[string]User, len(s.Users))
	for _, u := range s.Users {
		byID[u.ID] = u
	}
	return byID
}

func (s State) DevicesByID() map[string]Device {
	byID := make(map[string]Device, len(s.Devices))
	for _, d := range s.Devices {
		byID[d.ID] = d
	}
	return byID
}

func (s State) DevicesBySlot() map[int]Device {
	bySlot := make(map[int]Device, len(s.Devices))
	for _, d := range s.Devices {
		bySlot[d.Slot] = d
	}
	return bySlot
}

// Slots returns all known device slots in ascending order.
func (s State) Slots() []int {
	slots := make([]int, 0, len(s.Devices))
	for _, d := range s.Devices {
		slots = append(slots, d.Slot)
	}
	slices.Sort(slots)
	return slots
}
