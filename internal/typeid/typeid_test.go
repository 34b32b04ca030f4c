package typeid

import (
	"strings"
	"testing"
)

func TestNewAndValidate(t *testing.T) {
	id := NewPointID()
	if !strings.HasPrefix(id, PrefixPoint+"_") {
		t.Fatalf("NewPointID() = %q, want %s_ prefix", id, PrefixPoint)
	}
	if err := Validate(id, PrefixPoint); err != nil {
		t.Errorf("Validate(%q, pt): %v", id, err)
	}
	if err := Validate(id, PrefixFunction); err == nil {
		t.Errorf("Validate(%q, fn) succeeded", id)
	}
	if err := Validate("not-an-id", PrefixPoint); err == nil {
		t.Error("Validate accepted garbage")
	}
}

func TestPrefix(t *testing.T) {
	p, err := Prefix(NewHistoryID())
	if err != nil {
		t.Fatal(err)
	}
	if p != PrefixHistory {
		t.Errorf("Prefix = %q, want %q", p, PrefixHistory)
	}
	if NewSliderID() == NewSliderID() {
		t.Error("ids are not unique")
	}
}
