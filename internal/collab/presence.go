package collab

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
)

// PresenceManager tracks what each connected client is pointing at, keyed
// by client id since one user may have several tabs open.
type PresenceManager struct {
	mu    sync.Mutex
	byKey map[string]PresencePayload
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{byKey: make(map[string]PresencePayload)}
}

// Update stores a copy of p for clientID.
func (pm *PresenceManager) Update(clientID string, p PresencePayload) {
	p.Selection = slices.Clone(p.Selection)
	pm.mu.Lock()
	pm.byKey[clientID] = p
	pm.mu.Unlock()
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	delete(pm.byKey, clientID)
	pm.mu.Unlock()
}

// ForgetObjects drops deleted object ids from every selection and returns
// the clients whose selection changed.
func (pm *PresenceManager) ForgetObjects(removed []string) []string {
	if len(removed) == 0 {
		return nil
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var changed []string
	for id, p := range pm.byKey {
		kept := slices.DeleteFunc(slices.Clone(p.Selection), func(sel string) bool {
			return slices.Contains(removed, sel)
		})
		if len(kept) != len(p.Selection) {
			p.Selection = kept
			pm.byKey[id] = p
			changed = append(changed, id)
		}
	}
	slices.Sort(changed)
	return changed
}

// Get returns the presence stored for clientID.
func (pm *PresenceManager) Get(clientID string) (PresencePayload, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.byKey[clientID]
	return p, ok
}

func (pm *PresenceManager) StateMessage() *Message {
	pm.mu.Lock()
	state := PresenceStatePayload{Presences: make(map[string]*PresencePayload, len(pm.byKey))}
	for id, p := range pm.byKey {
		p := p
		state.Presences[id] = &p
	}
	pm.mu.Unlock()

	payload, err := json.Marshal(state)
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
