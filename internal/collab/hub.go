package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/geocalc/geocalc/backend-go/internal/typeid"
)

type Room struct {
	sessionID  string
	clients    map[string]*Client // clientID -> client
	presence   *PresenceManager
	state      *SceneState
	emptySince time.Time

	// opMu keeps acks and broadcasts in server sequence order.
	opMu sync.Mutex
}

func NewRoom(sessionID string, state *SceneState) *Room {
	return &Room{
		sessionID: sessionID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		state:     state,
	}
}

// Hub routes messages between the clients of every live session. A room
// outlives its last client by the idle timeout so a reconnect finds the
// graph where it was left.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]*Room // sessionID -> room
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	idleTimeout time.Duration
	now         func() time.Time
}

func NewHub(idleTimeout time.Duration) *Hub {
	return &Hub{
		rooms:       make(map[string]*Room),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Run serves registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	sweep := h.idleTimeout / 2
	if sweep <= 0 {
		sweep = time.Minute
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.sweepIdle()
		case <-ctx.Done():
			return
		}
	}
}

// Register queues client to join its session. It does nothing once the hub
// has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// CreateSession opens a new room, seeded from a saved snapshot when one is
// given, and returns its id. The room is dropped if nobody joins within the
// idle timeout.
func (h *Hub) CreateSession(snapshot []byte) (string, error) {
	state := NewSceneState()
	if len(snapshot) > 0 {
		var err error
		if state, err = LoadSceneState(snapshot); err != nil {
			return "", err
		}
	}
	id := typeid.NewSessionID()
	room := NewRoom(id, state)
	room.emptySince = h.now()

	h.mu.Lock()
	h.rooms[id] = room
	h.mu.Unlock()
	return id, nil
}

// RoomCount returns the number of live sessions.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		room = NewRoom(client.SessionID, NewSceneState())
		h.rooms[client.SessionID] = room
	}
	room.clients[client.ClientID] = client
	room.emptySince = time.Time{}
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{ClientID: client.ClientID, UserID: client.UserID})
	client.Send(&Message{Type: TypeWelcome, SessionID: client.SessionID, Payload: welcome})

	snap, seq, err := room.state.Snapshot()
	if err != nil {
		slog.Error("snapshot scene", "error", err, "session", client.SessionID)
	} else {
		syncPayload, _ := json.Marshal(SceneSyncPayload{Snapshot: snap, ServerSeq: seq})
		client.Send(&Message{Type: TypeSceneSync, SessionID: client.SessionID, Seq: seq, Payload: syncPayload})
	}

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:     TypePresenceJoin,
		UserID:   client.UserID,
		ClientID: client.ClientID,
		Payload:  joinPayload,
	}
	h.broadcastToRoom(client.SessionID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "session", client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		room.emptySince = h.now()
	}
	h.mu.Unlock()

	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID: client.UserID,
	})
	leaveMsg := &Message{
		Type:     TypePresenceLeave,
		UserID:   client.UserID,
		ClientID: client.ClientID,
		Payload:  leavePayload,
	}
	h.broadcastToRoom(client.SessionID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "session", client.SessionID)
}

// sweepIdle drops rooms that have been empty for longer than the idle
// timeout.
func (h *Hub) sweepIdle() {
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		if len(room.clients) == 0 && !room.emptySince.IsZero() && now.Sub(room.emptySince) >= h.idleTimeout {
			delete(h.rooms, id)
			slog.Info("session closed", "session", id, "ops", room.state.Seq())
		}
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.SendError("unknown message type " + msg.Type)
	}
}

func (h *Hub) room(sessionID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[sessionID]
	return room, ok
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	room, ok := h.room(sender.SessionID)
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, presence)

	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:     TypePresenceUpdate,
		UserID:   sender.UserID,
		ClientID: sender.ClientID,
		Payload:  outPayload,
	}
	h.broadcastToRoom(sender.SessionID, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid op payload", "error", err, "user", sender.UserID)
		sender.SendError("invalid operation payload")
		return
	}
	op := submit.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	room, ok := h.room(sender.SessionID)
	if !ok {
		return
	}

	room.opMu.Lock()
	defer room.opMu.Unlock()

	seq, removed, err := room.state.ApplyOperation(op)
	if err != nil {
		slog.Debug("operation rejected", "op", op.Type, "error", err, "user", sender.UserID)
		nack, _ := json.Marshal(OperationNackPayload{OperationID: op.ID, Reason: err.Error()})
		sender.Send(&Message{Type: TypeOpNack, Payload: nack})
		return
	}

	ack, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: GetServerTimestamp(),
		Removed:         removed,
	})
	sender.Send(&Message{Type: TypeOpAck, Seq: seq, Payload: ack})

	broadcast, _ := json.Marshal(OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
		Removed:   removed,
	})
	h.broadcastToRoom(sender.SessionID, &Message{
		Type:     TypeOpBroadcast,
		UserID:   sender.UserID,
		ClientID: sender.ClientID,
		Seq:      seq,
		Payload:  broadcast,
	}, sender.ClientID)

	// Selections must not point at objects that are gone.
	for _, clientID := range room.presence.ForgetObjects(removed) {
		p, ok := room.presence.Get(clientID)
		if !ok {
			continue
		}
		payload, _ := json.Marshal(p)
		h.broadcastToRoom(sender.SessionID, &Message{
			Type:     TypePresenceUpdate,
			ClientID: clientID,
			Payload:  payload,
		}, "")
	}
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sessionID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
