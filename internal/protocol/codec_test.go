package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name  string
		data  string
		check func(t *testing.T, msg Inbound)
	}{
		{
			name: "config",
			data: `{"type":"config","user_id":"u1","user_name":"Ann","user_color":"#fff"}`,
			check: func(t *testing.T, msg Inbound) {
				cfg, ok := msg.(ConfigMessage)
				if !ok {
					t.Fatalf("want ConfigMessage, got %T", msg)
				}
				if cfg.UserID != "u1" || cfg.UserName != "Ann" || cfg.UserColor != "#fff" {
					t.Fatalf("unexpected fields: %+v", cfg)
				}
			},
		},
		{
			name: "group_state",
			data: `{"type":"group_state","group_id":"g1","users":[{"id":"u1","name":"Ann","color":"#fff","connected_device_ids":["d1"],"last_activity_time":12.5,"last_ping":null}],"devices":[{"id":"d1","name":"pad","slot":1,"keybind_presets":{"default":[["KeyW","BTN_UP"],[null,"BTN_A"]]},"allowed_events":["BTN_UP"],"last_ping":0.02}]}`,
			check: func(t *testing.T, msg Inbound) {
				gs, ok := msg.(GroupStateMessage)
				if !ok {
					t.Fatalf("want GroupStateMessage, got %T", msg)
				}
				if gs.GroupID != "g1" || len(gs.Users) != 1 || len(gs.Devices) != 1 {
					t.Fatalf("unexpected fields: %+v", gs)
				}
				binds := gs.Devices[0].KeybindPresets["default"]
				if binds[0].Key() != "KeyW" || binds[0].Event() != "BTN_UP" {
					t.Fatalf("unexpected keybind: %+v", binds[0])
				}
				if binds[1].Key() != "" || binds[1].Event() != "BTN_A" {
					t.Fatalf("null key should decode as unassigned: %+v", binds[1])
				}
			},
		},
		{
			name: "activity_and_ping",
			data: `{"type":"activity_and_ping","users":{"u1":[100,0.05]},"devices":{"d1":0.01}}`,
			check: func(t *testing.T, msg Inbound) {
				ap, ok := msg.(ActivityAndPingMessage)
				if !ok {
					t.Fatalf("want ActivityAndPingMessage, got %T", msg)
				}
				pair := ap.Users["u1"]
				if pair[0] == nil || *pair[0] != 100 || pair[1] == nil || *pair[1] != 0.05 {
					t.Fatalf("unexpected user telemetry: %v", pair)
				}
				if ping := ap.Devices["d1"]; ping == nil || *ping != 0.01 {
					t.Fatalf("unexpected device telemetry: %v", ping)
				}
			},
		},
		{
			name: "ping",
			data: `{"type":"ping","id":"abc"}`,
			check: func(t *testing.T, msg Inbound) {
				ping, ok := msg.(PingMessage)
				if !ok {
					t.Fatalf("want PingMessage, got %T", msg)
				}
				if ping.ID != "abc" {
					t.Fatalf("unexpected id: %q", ping.ID)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Decode([]byte(tc.data))
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			tc.check(t, msg)
		})
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"surprise"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
}

func TestDecode_BadJSON(t *testing.T) {
	if _, err := Decode([]byte(`{nope`)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEncode_Keypress(t *testing.T) {
	data, err := Encode(KeypressMessage{Type: TypeKeypress, DeviceID: "d1", Code: "BTN_UP", State: 1})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if decoded["type"] != "keypress" || decoded["device_id"] != "d1" || decoded["code"] != "BTN_UP" || decoded["state"] != float64(1) {
		t.Fatalf("unexpected wire shape: %v", decoded)
	}
}
