package preset

import (
	"maps"
	"slices"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/group"
)

// None is the sentinel preset name meaning "no preset selected".
const None = "None"

// SlotPresets maps a device slot to the preset name selected for it. Entries
// are keyed by slot rather than device id because slots stay stable across
// reconnects while ids churn.
type SlotPresets map[int]string

// Reconcile repairs the selection map against a new device snapshot: a
// stored name that no longer exists on the device at its slot is replaced
// by "default" if the device has it, else the first preset name in sorted
// order, else None. The input map is never mutated.
func Reconcile(prev SlotPresets, devices []group.Device) SlotPresets {
	next := maps.Clone(prev)
	if next == nil {
		next = SlotPresets{}
	}

	for _, device := range devices {
		if name, ok := next[device.Slot]; ok {
			if name != None {
				if _, present := device.KeybindPresets[name]; !present {
					delete(next, device.Slot)
				}
			}
		}

		if _, ok := next[device.Slot]; !ok {
			next[device.Slot] = fallbackName(device)
		}
	}

	return next
}

func fallbackName(device group.Device) string {
	if _, ok := device.KeybindPresets["default"]; ok {
		return "default"
	}
	names := slices.Sorted(maps.Keys(device.KeybindPresets))
	if len(names) > 0 {
		return names[0]
	}
	return None
}

// Select applies a user-driven preset choice. The choice is accepted only
// if a device occupies the slot and name is None or one of its presets;
// anything else is dropped without error because a race between the UI and
// a concurrent snapshot is expected. Returns the (possibly new) map and
// whether it changed.
func Select(prev SlotPresets, slot int, name string, devicesBySlot map[int]group.Device) (SlotPresets, bool) {
	device, ok := devicesBySlot[slot]
	if !ok {
		return prev, false
	}
	if name != None {
		if _, ok := device.KeybindPresets[name]; !ok {
			return prev, false
		}
	}
	if prev[slot] == name {
		return prev, false
	}

	next := maps.Clone(prev)
	if next == nil {
		next = SlotPresets{}
	}
	next[slot] = name
	return next, true
}
