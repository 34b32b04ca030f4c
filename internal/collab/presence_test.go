package collab

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestPresenceForgetObjects(t *testing.T) {
	pm := NewPresenceManager()
	sel := []string{"pt_a", "seg_ab"}
	pm.Update("c1", PresencePayload{Selection: sel, Tool: "select"})
	pm.Update("c2", PresencePayload{Selection: []string{"fn_1"}})
	pm.Update("c3", PresencePayload{Cursor: &CursorPos{X: 1, Y: 1}})

	// The stored selection is a copy.
	sel[0] = "changed"

	changed := pm.ForgetObjects([]string{"pt_a", "seg_ab", "fn_9"})
	if !slices.Equal(changed, []string{"c1"}) {
		t.Errorf("changed = %v", changed)
	}
	p, _ := pm.Get("c1")
	if len(p.Selection) != 0 || p.Tool != "select" {
		t.Errorf("c1 = %+v", p)
	}
	if p, _ := pm.Get("c2"); !slices.Equal(p.Selection, []string{"fn_1"}) {
		t.Errorf("c2 selection = %v", p.Selection)
	}
	if got := pm.ForgetObjects(nil); got != nil {
		t.Errorf("nothing removed, changed = %v", got)
	}

	pm.Remove("c2")
	var state PresenceStatePayload
	if err := json.Unmarshal(pm.StateMessage().Payload, &state); err != nil {
		t.Fatal(err)
	}
	if len(state.Presences) != 2 || state.Presences["c3"].Cursor.X != 1 {
		t.Errorf("state = %+v", state.Presences)
	}
}
