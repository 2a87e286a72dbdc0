package keymap

import (
	"slices"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/group"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/preset"
)

const (
	// BrowserTarget is the pseudo-device target for local slot-switching
	// shortcuts; it is always "connected".
	BrowserTarget = "BROWSER"
	// BrowserSlot is the reserved custom-keybind slot for BrowserTarget.
	BrowserSlot = -1
)

// CustomKeybind is a user-authored binding, independent of any device
// preset. Slot is nil while unassigned; BrowserSlot targets the browser
// pseudo-device.
type CustomKeybind struct {
	Key    string `json:"key"`
	Event  string `json:"event"`
	Slot   *int   `json:"slot"`
	Active bool   `json:"active"`
}

// Binding is one resolved action for a physical key: the output event to
// send and the device it goes to (or BrowserTarget).
type Binding struct {
	Target string `json:"target"`
	Event  string `json:"event"`
}

// Resolve derives the active key lookup table from the current snapshot:
// physical key code -> ordered bindings. Preset-driven bindings for a key
// come before custom ones for the same key, and all of them fire.
//
// The reconciler keeps slot presets valid across snapshots, but Resolve
// re-checks every reference anyway and skips what does not hold up.
func Resolve(
	user *group.User,
	devicesByID map[string]group.Device,
	devicesBySlot map[int]group.Device,
	slotPresets preset.SlotPresets,
	custom []CustomKeybind,
) map[string][]Binding {
	bindings := map[string][]Binding{}
	if user == nil {
		return bindings
	}

	for _, deviceID := range user.ConnectedDeviceIDs {
		device, ok := devicesByID[deviceID]
		if !ok {
			continue
		}

		selected, ok := slotPresets[device.Slot]
		if !ok || selected == "" || selected == preset.None {
			continue
		}
		keybinds, ok := device.KeybindPresets[selected]
		if !ok {
			continue
		}

		for _, kb := range keybinds {
			if kb.Key == "" || kb.Event == "" {
				continue
			}
			bindings[kb.Key] = append(bindings[kb.Key], Binding{Target: device.ID, Event: kb.Event})
		}
	}

	for _, kb := range custom {
		if !kb.Active || kb.Key == "" || kb.Event == "" || kb.Slot == nil {
			continue
		}

		if *kb.Slot == BrowserSlot {
			bindings[kb.Key] = append(bindings[kb.Key], Binding{Target: BrowserTarget, Event: kb.Event})
			continue
		}

		device, ok := devicesBySlot[*kb.Slot]
		if !ok || !slices.Contains(user.ConnectedDeviceIDs, device.ID) {
			continue
		}
		bindings[kb.Key] = append(bindings[kb.Key], Binding{Target: device.ID, Event: kb.Event})
	}

	return bindings
}
