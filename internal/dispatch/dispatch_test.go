package dispatch

import (
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/group"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/keymap"
)

type keypressCall struct {
	DeviceID string
	Code     string
	State    int
}

type selectionCall struct {
	DeviceID string
	State    bool
}

type fakeSender struct {
	keypresses []keypressCall
	selections []selectionCall
}

func (f *fakeSender) Keypress(deviceID, code string, state int) {
	f.keypresses = append(f.keypresses, keypressCall{deviceID, code, state})
}

func (f *fakeSender) SelectOutput(deviceID string, state bool) {
	f.selections = append(f.selections, selectionCall{deviceID, state})
}

func slotMap(devices ...group.Device) map[int]group.Device {
	bySlot := map[int]group.Device{}
	for _, d := range devices {
		bySlot[d.Slot] = d
	}
	return bySlot
}

func browserBindings(key, action string) map[string][]keymap.Binding {
	return map[string][]keymap.Binding{
		key: {{Target: keymap.BrowserTarget, Event: action}},
	}
}

func TestHandleKey_EmitsKeypressForBothTransitions(t *testing.T) {
	d := New(zap.NewNop())
	out := &fakeSender{}
	bindings := map[string][]keymap.Binding{
		"KeyW": {{Target: "d1", Event: "BTN_UP"}},
	}

	if !d.HandleKey(KeyEvent{Code: "KeyW", State: StatePress}, bindings, nil, nil, out) {
		t.Fatalf("expected press to be consumed")
	}
	if !d.HandleKey(KeyEvent{Code: "KeyW", State: StateRelease}, bindings, nil, nil, out) {
		t.Fatalf("expected release to be consumed")
	}

	want := []keypressCall{
		{"d1", "BTN_UP", StatePress},
		{"d1", "BTN_UP", StateRelease},
	}
	if !reflect.DeepEqual(out.keypresses, want) {
		t.Fatalf("want %v, got %v", want, out.keypresses)
	}
}

func TestHandleKey_UnboundKeyPassesThrough(t *testing.T) {
	d := New(zap.NewNop())
	out := &fakeSender{}

	if d.HandleKey(KeyEvent{Code: "KeyZ", State: StatePress}, map[string][]keymap.Binding{}, nil, nil, out) {
		t.Fatalf("unbound key must not be consumed")
	}
	if len(out.keypresses) != 0 || len(out.selections) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestHandleKey_CaptureSuppression(t *testing.T) {
	d := New(zap.NewNop())
	out := &fakeSender{}
	bindings := map[string][]keymap.Binding{
		"KeyW": {{Target: "d1", Event: "BTN_UP"}},
	}

	d.SetCapture("name-editor")
	if d.HandleKey(KeyEvent{Code: "KeyW", State: StatePress}, bindings, nil, nil, out) {
		t.Fatalf("captured key must not be consumed")
	}

	d.ReleaseCapture("someone-else")
	if !d.Captured() {
		t.Fatalf("capture must only be released by its owner")
	}

	d.ReleaseCapture("name-editor")
	if !d.HandleKey(KeyEvent{Code: "KeyW", State: StatePress}, bindings, nil, nil, out) {
		t.Fatalf("key should dispatch again after release")
	}
}

func TestBrowserAction_IgnoresRelease(t *testing.T) {
	d := New(zap.NewNop())
	out := &fakeSender{}
	bySlot := slotMap(group.Device{ID: "d0", Slot: 0})

	consumed := d.HandleKey(KeyEvent{Code: "KeyX", State: StateRelease},
		browserBindings("KeyX", "Switch to Slot 0"), nil, bySlot, out)

	if !consumed {
		t.Fatalf("bound key is consumed even on release")
	}
	if len(out.selections) != 0 {
		t.Fatalf("browser actions must not fire on release, got %v", out.selections)
	}
}

func TestBrowserAction_SwitchToNextSlot(t *testing.T) {
	// Three devices on slots 0..2, user connected to slot 1 only: next
	// lands on slot 2, slot 1 gets disconnected, slot 0 stays untouched.
	bySlot := slotMap(
		group.Device{ID: "d0", Slot: 0},
		group.Device{ID: "d1", Slot: 1},
		group.Device{ID: "d2", Slot: 2},
	)
	user := &group.User{ID: "u1", ConnectedDeviceIDs: []string{"d1"}}

	d := New(zap.NewNop())
	out := &fakeSender{}
	d.HandleKey(KeyEvent{Code: "KeyX", State: StatePress},
		browserBindings("KeyX", "Switch to next Slot"), user, bySlot, out)

	want := []selectionCall{{"d1", false}, {"d2", true}}
	if !reflect.DeepEqual(out.selections, want) {
		t.Fatalf("want %v, got %v", want, out.selections)
	}
}

func TestBrowserAction_NextWrapsAround(t *testing.T) {
	bySlot := slotMap(
		group.Device{ID: "d0", Slot: 0},
		group.Device{ID: "d2", Slot: 2},
	)
	user := &group.User{ID: "u1", ConnectedDeviceIDs: []string{"d2"}}

	d := New(zap.NewNop())
	out := &fakeSender{}
	d.HandleKey(KeyEvent{Code: "KeyX", State: StatePress},
		browserBindings("KeyX", "Switch to next Slot"), user, bySlot, out)

	want := []selectionCall{{"d0", true}, {"d2", false}}
	if !reflect.DeepEqual(out.selections, want) {
		t.Fatalf("want %v, got %v", want, out.selections)
	}
}

func TestBrowserAction_PreviousUsesMaxAnchor(t *testing.T) {
	bySlot := slotMap(
		group.Device{ID: "d0", Slot: 0},
		group.Device{ID: "d1", Slot: 1},
		group.Device{ID: "d2", Slot: 2},
	)
	user := &group.User{ID: "u1", ConnectedDeviceIDs: []string{"d0", "d2"}}

	d := New(zap.NewNop())
	out := &fakeSender{}
	d.HandleKey(KeyEvent{Code: "KeyX", State: StatePress},
		browserBindings("KeyX", "Switch to previous Slot"), user, bySlot, out)

	// anchor is slot 2 (max connected), previous is slot 1; slot 0 was
	// connected and gets dropped by the exclusive switch.
	want := []selectionCall{{"d0", false}, {"d1", true}, {"d2", false}}
	if !reflect.DeepEqual(out.selections, want) {
		t.Fatalf("want %v, got %v", want, out.selections)
	}
}

func TestBrowserAction_ToggleSlot(t *testing.T) {
	bySlot := slotMap(
		group.Device{ID: "d0", Slot: 0},
		group.Device{ID: "d1", Slot: 1},
	)
	user := &group.User{ID: "u1", ConnectedDeviceIDs: []string{"d1"}}

	d := New(zap.NewNop())
	out := &fakeSender{}
	d.HandleKey(KeyEvent{Code: "KeyX", State: StatePress},
		browserBindings("KeyX", "Toggle Slot 1"), user, bySlot, out)
	d.HandleKey(KeyEvent{Code: "KeyY", State: StatePress},
		browserBindings("KeyY", "Toggle Slot 0"), user, bySlot, out)

	want := []selectionCall{{"d1", false}, {"d0", true}}
	if !reflect.DeepEqual(out.selections, want) {
		t.Fatalf("want %v, got %v", want, out.selections)
	}
}

func TestBrowserAction_SwitchToSlot(t *testing.T) {
	bySlot := slotMap(
		group.Device{ID: "d0", Slot: 0},
		group.Device{ID: "d1", Slot: 1},
	)
	user := &group.User{ID: "u1", ConnectedDeviceIDs: []string{"d0"}}

	d := New(zap.NewNop())
	out := &fakeSender{}
	d.HandleKey(KeyEvent{Code: "KeyX", State: StatePress},
		browserBindings("KeyX", "Switch to Slot 1"), user, bySlot, out)

	want := []selectionCall{{"d0", false}, {"d1", true}}
	if !reflect.DeepEqual(out.selections, want) {
		t.Fatalf("want %v, got %v", want, out.selections)
	}
}

func TestBrowserAction_MalformedAndUnknownAreNoOps(t *testing.T) {
	bySlot := slotMap(group.Device{ID: "d0", Slot: 0})

	d := New(zap.NewNop())
	out := &fakeSender{}
	for _, action := range []string{"Switch to Slot banana", "Toggle Slot ", "Do a barrel roll"} {
		d.HandleKey(KeyEvent{Code: "KeyX", State: StatePress},
			browserBindings("KeyX", action), nil, bySlot, out)
	}

	if len(out.selections) != 0 {
		t.Fatalf("malformed actions must be no-ops, got %v", out.selections)
	}
}
