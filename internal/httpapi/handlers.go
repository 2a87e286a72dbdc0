package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/dispatch"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/keymap"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/session"
)

type API struct {
	supervisor *session.Supervisor
	log        *zap.Logger
}

func New(s *session.Supervisor, log *zap.Logger) *API {
	return &API{supervisor: s, log: log}
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Status returns a consistent snapshot of the session: status, identity,
// roster, slot presets, custom keybinds and the resolved key table.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	view, err := a.supervisor.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "snapshot unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) JoinGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GroupID string `json:"group_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.GroupID == "" {
		http.Error(w, "missing group_id", http.StatusBadRequest)
		return
	}
	a.supervisor.Inbox() <- session.JoinGroup{GroupID: body.GroupID}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	a.supervisor.Inbox() <- session.LeaveGroup{}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) RenameOutput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	a.supervisor.Inbox() <- session.RenameOutput{
		DeviceID: chi.URLParam(r, "id"),
		Name:     body.Name,
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) SelectOutput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		State bool `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	a.supervisor.Inbox() <- session.SelectOutput{
		DeviceID: chi.URLParam(r, "id"),
		State:    body.State,
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) SelectPreset(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		http.Error(w, "bad slot", http.StatusBadRequest)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	a.supervisor.Inbox() <- session.SelectPreset{Slot: slot, Name: body.Name}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) UpdateUserData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	a.supervisor.Inbox() <- session.SetUserData{Name: body.Name, Color: body.Color}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) GetKeybinds(w http.ResponseWriter, r *http.Request) {
	view, err := a.supervisor.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "snapshot unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, view.CustomKeybinds)
}

// PutKeybinds replaces the whole custom keybind list, mirroring how the
// keymap editor saves.
func (a *API) PutKeybinds(w http.ResponseWriter, r *http.Request) {
	var keybinds []keymap.CustomKeybind
	if err := json.NewDecoder(r.Body).Decode(&keybinds); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	a.supervisor.Inbox() <- session.SetCustomKeybinds{Keybinds: keybinds}
	w.WriteHeader(http.StatusAccepted)
}

// InjectKey feeds a raw key transition into the input dispatcher, the same
// path the console uses.
func (a *API) InjectKey(w http.ResponseWriter, r *http.Request) {
	var body dispatch.KeyEvent
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	if body.State != dispatch.StatePress && body.State != dispatch.StateRelease {
		http.Error(w, "state must be 0 or 1", http.StatusBadRequest)
		return
	}
	a.supervisor.Inbox() <- session.Key{Event: body}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
