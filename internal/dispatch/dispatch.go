package dispatch

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/group"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/keymap"
)

const (
	StatePress   = 1
	StateRelease = 0
)

const (
	actionSwitchToSlot = "Switch to Slot "
	actionToggleSlot   = "Toggle Slot "
	actionNextSlot     = "Switch to next Slot"
	actionPreviousSlot = "Switch to previous Slot"
)

// KeyEvent is a raw key transition from the host environment.
type KeyEvent struct {
	Code  string `json:"code"`
	State int    `json:"state"`
}

// Sender carries resolved actions out of the dispatcher. The session layer
// implements it on top of the wire protocol.
type Sender interface {
	Keypress(deviceID, code string, state int)
	SelectOutput(deviceID string, state bool)
}

// Dispatcher turns raw key events into device commands using a resolved
// keybind table. It owns the capture-suppression state: while some surface
// (a text input, a bind-capture row) holds capture, key events pass through
// untouched. Capture is toggled from host goroutines while HandleKey runs on
// the session loop, so the owner field is mutex-guarded.
type Dispatcher struct {
	log *zap.Logger

	mu           sync.Mutex
	captureOwner string
}

func New(log *zap.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

// SetCapture marks owner as the surface currently consuming raw keys.
func (d *Dispatcher) SetCapture(owner string) {
	d.mu.Lock()
	d.captureOwner = owner
	d.mu.Unlock()
}

// ReleaseCapture frees capture if owner still holds it.
func (d *Dispatcher) ReleaseCapture(owner string) {
	d.mu.Lock()
	if d.captureOwner == owner {
		d.captureOwner = ""
	}
	d.mu.Unlock()
}

func (d *Dispatcher) Captured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.captureOwner != ""
}

// HandleKey dispatches one key transition. It reports whether the event was
// consumed, so the host can decide about default handling. Bindings fire in
// order; browser actions only on press.
func (d *Dispatcher) HandleKey(
	ev KeyEvent,
	bindings map[string][]keymap.Binding,
	user *group.User,
	devicesBySlot map[int]group.Device,
	out Sender,
) bool {
	if d.Captured() {
		return false
	}

	matched := bindings[ev.Code]
	if len(matched) == 0 {
		return false
	}

	for _, binding := range matched {
		if binding.Target == keymap.BrowserTarget {
			if ev.State != StatePress {
				continue
			}
			d.runBrowserAction(binding.Event, user, devicesBySlot, out)
			continue
		}
		out.Keypress(binding.Target, binding.Event, ev.State)
	}
	return true
}

// runBrowserAction executes one slot-switching shortcut against the full
// ordered set of device slots. Redundant select_output ops (desired state
// equals the user's current connection state) are suppressed. Unknown or
// malformed action strings are no-ops.
func (d *Dispatcher) runBrowserAction(action string, user *group.User, devicesBySlot map[int]group.Device, out Sender) {
	slots := sortedSlots(devicesBySlot)
	if len(slots) == 0 {
		return
	}

	switch {
	case strings.HasPrefix(action, actionSwitchToSlot):
		target, err := strconv.Atoi(strings.TrimPrefix(action, actionSwitchToSlot))
		if err != nil {
			d.log.Warn("malformed slot-switch action", zap.String("action", action))
			return
		}
		d.switchExclusive(target, slots, devicesBySlot, user, out)

	case strings.HasPrefix(action, actionToggleSlot):
		target, err := strconv.Atoi(strings.TrimPrefix(action, actionToggleSlot))
		if err != nil {
			d.log.Warn("malformed slot-toggle action", zap.String("action", action))
			return
		}
		device, ok := devicesBySlot[target]
		if !ok {
			return
		}
		out.SelectOutput(device.ID, !isConnected(user, device.ID))

	case action == actionNextSlot:
		anchor := slots[len(slots)-1]
		if active := activeSlots(slots, devicesBySlot, user); len(active) > 0 {
			anchor = active[0]
		}
		next := slots[0]
		for _, slot := range slots {
			if slot > anchor {
				next = slot
				break
			}
		}
		d.switchExclusive(next, slots, devicesBySlot, user, out)

	case action == actionPreviousSlot:
		anchor := slots[0]
		if active := activeSlots(slots, devicesBySlot, user); len(active) > 0 {
			anchor = active[len(active)-1]
		}
		previous := slots[len(slots)-1]
		for i := len(slots) - 1; i >= 0; i-- {
			if slots[i] < anchor {
				previous = slots[i]
				break
			}
		}
		d.switchExclusive(previous, slots, devicesBySlot, user, out)
	}
}

// switchExclusive connects exactly the device at target and disconnects all
// others.
func (d *Dispatcher) switchExclusive(target int, slots []int, devicesBySlot map[int]group.Device, user *group.User, out Sender) {
	for _, slot := range slots {
		device := devicesBySlot[slot]
		desired := slot == target
		if desired == isConnected(user, device.ID) {
			continue
		}
		out.SelectOutput(device.ID, desired)
	}
}

func sortedSlots(devicesBySlot map[int]group.Device) []int {
	slots := make([]int, 0, len(devicesBySlot))
	for slot := range devicesBySlot {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	return slots
}

// activeSlots returns the slots of devices the user is connected to, ascending.
func activeSlots(slots []int, devicesBySlot map[int]group.Device, user *group.User) []int {
	active := []int{}
	for _, slot := range slots {
		if isConnected(user, devicesBySlot[slot].ID) {
			active = append(active, slot)
		}
	}
	return active
}

func isConnected(user *group.User, deviceID string) bool {
	if user == nil {
		return false
	}
	return slices.Contains(user.ConnectedDeviceIDs, deviceID)
}
