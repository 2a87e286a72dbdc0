package session

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/dispatch"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/group"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/keymap"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/prefs"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/preset"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/protocol"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second
)

type Options struct {
	URL    string
	Dialer Dialer
	Store  *prefs.Store
	Log    *zap.Logger

	// Reconnect backoff bounds; the delay doubles from Min to Max and
	// resets after a successful open.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Supervisor owns the single logical connection to the server and the
// client-side group state. All mutation happens on its loop goroutine;
// everything else talks to it through the inbox.
type Supervisor struct {
	inbox      chan Msg
	log        *zap.Logger
	dialer     Dialer
	url        string
	store      *prefs.Store
	dispatcher *dispatch.Dispatcher

	reconnectMin time.Duration
	reconnectMax time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	status  Status
	conn    Conn
	gen     int
	backoff time.Duration

	userID      string
	userName    string
	userColor   string
	groupID     string
	lastGroupID string

	group       group.State
	slotPresets preset.SlotPresets
	custom      []keymap.CustomKeybind
}

func New(parent context.Context, opts Options) *Supervisor {
	ctx, cancel := context.WithCancel(parent)

	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{}
	}
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = 500 * time.Millisecond
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = 10 * time.Second
	}

	s := &Supervisor{
		inbox:        make(chan Msg, 64),
		log:          opts.Log,
		dialer:       opts.Dialer,
		url:          opts.URL,
		store:        opts.Store,
		dispatcher:   dispatch.New(opts.Log),
		reconnectMin: opts.ReconnectMin,
		reconnectMax: opts.ReconnectMax,
		ctx:          ctx,
		cancel:       cancel,
		status:       StatusDisconnected,
		backoff:      opts.ReconnectMin,
		group:        group.Empty(),
	}

	s.userName = s.store.UserName(ctx)
	s.userColor = s.store.UserColor(ctx)
	s.lastGroupID = s.store.LastGroupID(ctx)
	s.slotPresets = s.store.SlotPresets(ctx)
	s.custom = s.store.CustomKeybinds(ctx)

	go s.loop()
	s.post(redial{})
	return s
}

func (s *Supervisor) Inbox() chan<- Msg { return s.inbox }

// Dispatcher exposes the capture-suppression owner for host surfaces.
func (s *Supervisor) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// Snapshot is a convenience wrapper around GetState for callers outside
// the loop.
func (s *Supervisor) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case s.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case view := <-reply:
		return view, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (s *Supervisor) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Supervisor) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.teardown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case redial:
				s.dial()
			case connOpened:
				s.handleOpened(msg)
			case connClosed:
				s.handleClosed(msg)
			case inboundFrame:
				s.handleInbound(msg)

			case JoinGroup:
				s.joinGroup(msg.GroupID)
			case LeaveGroup:
				s.leaveGroup()
			case RenameOutput:
				s.renameOutput(msg.DeviceID, msg.Name)
			case SelectOutput:
				s.selectOutput(msg.DeviceID, msg.State)
			case SelectPreset:
				s.selectPreset(msg.Slot, msg.Name)
			case SetUserData:
				s.setUserData(msg.Name, msg.Color)
			case Key:
				s.handleKey(msg.Event)
			case SetCustomKeybinds:
				s.custom = slices.Clone(msg.Keybinds)
				s.store.SetCustomKeybinds(s.ctx, s.custom)

			case GetState:
				msg.Reply <- s.view()
			case Shutdown:
				s.teardown()
				return
			}
		}
	}
}

func (s *Supervisor) teardown() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.cancel()
}

// dial tears down any previous socket before establishing a new one, so at
// most one connection is ever live. The connection goroutine reports back
// into the inbox tagged with its generation; reports from superseded
// generations are ignored.
func (s *Supervisor) dial() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.gen++
	gen := s.gen

	go func() {
		dialCtx, cancel := context.WithTimeout(s.ctx, dialTimeout)
		conn, err := s.dialer.Dial(dialCtx, s.url)
		cancel()
		if err != nil {
			s.post(connClosed{gen: gen, err: err})
			return
		}
		s.post(connOpened{gen: gen, conn: conn})

		for {
			data, err := conn.Read(s.ctx)
			if err != nil {
				s.post(connClosed{gen: gen, err: err})
				return
			}
			s.post(inboundFrame{gen: gen, data: data})
		}
	}()
}

func (s *Supervisor) handleOpened(msg connOpened) {
	if msg.gen != s.gen {
		msg.conn.Close()
		return
	}
	s.conn = msg.conn
	s.status = StatusConnected
	s.backoff = s.reconnectMin
	s.log.Info("connected", zap.String("url", s.url))

	if s.lastGroupID != "" {
		s.joinGroup(s.lastGroupID)
	}
}

func (s *Supervisor) handleClosed(msg connClosed) {
	if msg.gen != s.gen {
		return
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.status = StatusDisconnected
	s.group = group.Empty()
	s.groupID = ""

	if !errors.Is(msg.err, context.Canceled) {
		s.log.Warn("connection lost", zap.Error(msg.err))
	}

	delay := s.backoff
	s.backoff = min(s.backoff*2, s.reconnectMax)
	time.AfterFunc(delay, func() { s.post(redial{}) })
}

func (s *Supervisor) handleInbound(msg inboundFrame) {
	if msg.gen != s.gen {
		return
	}
	decoded, err := protocol.Decode(msg.data)
	if err != nil {
		s.log.Warn("dropping inbound message", zap.Error(err))
		return
	}

	switch m := decoded.(type) {
	case protocol.ConfigMessage:
		s.handleConfig(m)
	case protocol.GroupStateMessage:
		s.handleGroupState(m)
	case protocol.ActivityAndPingMessage:
		s.group = group.ApplyTelemetry(s.group, m.Users, m.Devices)
	case protocol.PingMessage:
		s.send(protocol.PongMessage{Type: protocol.TypePong, ID: m.ID})
	}
}

// handleConfig adopts the server's canonical identity; once an id has been
// assigned the server is the source of truth for name and color.
func (s *Supervisor) handleConfig(msg protocol.ConfigMessage) {
	if msg.UserID != "" {
		s.userID = msg.UserID
	}
	if msg.UserName != "" {
		s.userName = msg.UserName
		s.store.Set(s.ctx, prefs.KeyName, s.userName)
	}
	if msg.UserColor != "" {
		s.userColor = msg.UserColor
		s.store.Set(s.ctx, prefs.KeyColor, s.userColor)
	}
}

// handleGroupState applies a full snapshot: replace the store, then repair
// slot presets, all before any later message is looked at.
func (s *Supervisor) handleGroupState(msg protocol.GroupStateMessage) {
	if s.groupID != "" && msg.GroupID != s.groupID {
		s.log.Warn("group_state for unexpected group",
			zap.String("want", s.groupID), zap.String("got", msg.GroupID))
	}
	s.groupID = msg.GroupID
	next := group.FromWire(msg)

	reconciled := preset.Reconcile(s.slotPresets, next.Devices)
	if !maps.Equal(reconciled, s.slotPresets) {
		s.slotPresets = reconciled
		s.store.SetSlotPresets(s.ctx, s.slotPresets)
	}

	s.group = next
}

func (s *Supervisor) joinGroup(groupID string) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return
	}
	s.send(protocol.JoinGroupMessage{Type: protocol.TypeJoinGroup, GroupID: groupID})

	// Optimistic: membership is assumed on send, the server either accepts
	// or drops the connection.
	if s.status == StatusConnected {
		s.status = StatusJoinedGroup
		s.pushUserData()
	}
	s.lastGroupID = groupID
	s.store.Set(s.ctx, prefs.KeyLastGroupID, groupID)
}

func (s *Supervisor) leaveGroup() {
	s.send(protocol.LeaveGroupMessage{Type: protocol.TypeLeaveGroup})

	s.group = group.Empty()
	s.groupID = ""
	s.lastGroupID = ""
	s.store.Set(s.ctx, prefs.KeyLastGroupID, "")

	if s.status == StatusJoinedGroup {
		s.status = StatusConnected
	}
}

func (s *Supervisor) renameOutput(deviceID, name string) {
	if s.status != StatusJoinedGroup {
		return
	}
	device, ok := s.group.DevicesByID()[deviceID]
	if !ok {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" || name == device.Name {
		return
	}
	s.send(protocol.RenameOutputMessage{Type: protocol.TypeRenameOutput, ID: deviceID, Name: name})
}

func (s *Supervisor) selectOutput(deviceID string, state bool) {
	if s.status != StatusJoinedGroup {
		return
	}
	if user, ok := s.group.UserByID(s.userID); ok {
		if slices.Contains(user.ConnectedDeviceIDs, deviceID) == state {
			return
		}
	}
	s.send(protocol.SelectOutputMessage{Type: protocol.TypeSelectOutput, ID: deviceID, State: state})
}

func (s *Supervisor) selectPreset(slot int, name string) {
	next, changed := preset.Select(s.slotPresets, slot, name, s.group.DevicesBySlot())
	if !changed {
		return
	}
	s.slotPresets = next
	s.store.SetSlotPresets(s.ctx, s.slotPresets)
}

func (s *Supervisor) setUserData(name, color string) {
	name = strings.TrimSpace(name)
	if name != "" {
		s.userName = name
		s.store.Set(s.ctx, prefs.KeyName, name)
	}
	if color != "" {
		s.userColor = color
		s.store.Set(s.ctx, prefs.KeyColor, color)
	}
	s.pushUserData()
}

// pushUserData pushes local identity preferences, guarded so stale defaults
// are never sent before the server has assigned an identity.
func (s *Supervisor) pushUserData() {
	if s.status != StatusJoinedGroup {
		return
	}
	s.send(protocol.UpdateUserDataMessage{
		Type:  protocol.TypeUpdateUserData,
		Name:  strings.TrimSpace(s.userName),
		Color: s.userColor,
	})
}

func (s *Supervisor) handleKey(ev dispatch.KeyEvent) {
	if s.status != StatusJoinedGroup {
		return
	}
	var user *group.User
	if u, ok := s.group.UserByID(s.userID); ok {
		user = &u
	}
	bindings := keymap.Resolve(user, s.group.DevicesByID(), s.group.DevicesBySlot(), s.slotPresets, s.custom)
	s.dispatcher.HandleKey(ev, bindings, user, s.group.DevicesBySlot(), loopSender{s})
}

// loopSender adapts the supervisor's guarded send paths to the dispatcher.
// It is only used from within the loop goroutine.
type loopSender struct{ s *Supervisor }

func (ls loopSender) Keypress(deviceID, code string, state int) {
	ls.s.send(protocol.KeypressMessage{
		Type:     protocol.TypeKeypress,
		DeviceID: deviceID,
		Code:     code,
		State:    state,
	})
}

func (ls loopSender) SelectOutput(deviceID string, state bool) {
	ls.s.selectOutput(deviceID, state)
}

// send writes one outbound message. While the transport is down this is a
// logged no-op, never an error.
func (s *Supervisor) send(msg any) {
	if s.conn == nil {
		s.log.Debug("dropping outbound message, transport not open")
		return
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		s.log.Warn("encode outbound message", zap.Error(err))
		return
	}
	writeCtx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(writeCtx, data); err != nil {
		s.log.Warn("write outbound message", zap.Error(err))
	}
}

func (s *Supervisor) view() View {
	var user *group.User
	if u, ok := s.group.UserByID(s.userID); ok {
		user = &u
	}
	bindings := keymap.Resolve(user, s.group.DevicesByID(), s.group.DevicesBySlot(), s.slotPresets, s.custom)

	return View{
		Status:         s.status,
		UserID:         s.userID,
		UserName:       s.userName,
		UserColor:      s.userColor,
		GroupID:        s.groupID,
		Group:          s.group,
		SlotPresets:    maps.Clone(s.slotPresets),
		CustomKeybinds: slices.Clone(s.custom),
		Bindings:       bindings,
	}
}
