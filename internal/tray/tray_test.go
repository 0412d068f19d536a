package tray

import "testing"

func TestTitles(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{toggleTitle(true), "● Enabled"},
		{toggleTitle(false), "○ Disabled"},
		{lastTitle(""), "Last: none"},
		{lastTitle("flick-e K_A"), "Last: flick-e K_A"},
		{layerTitle(""), "Layer: default"},
		{layerTitle("caps"), "Layer: caps"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestStateWithoutMenu(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("new tray should start enabled")
	}

	tr.SetEnabled(false)
	if tr.IsEnabled() {
		t.Error("SetEnabled(false) had no effect")
	}

	// Updates before the menu exists are ignored.
	tr.SetLastGesture("simple-tap K_A")
	tr.SetLayer("caps")

	var called bool
	tr.OnSettings(func() { called = true })
	tr.invoke(func() func() { return tr.onSettings })
	if !called {
		t.Error("settings callback not invoked")
	}
}
