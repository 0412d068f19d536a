// Package keyboard defines the on-screen keyboard gesture catalogue: key
// metadata and the gesture models built from it.
package keyboard

import "strings"

// Key describes one on-screen key.
type Key struct {
	ID      string   `json:"id" toml:"id"`
	Subkeys []string `json:"subkeys,omitempty" toml:"subkeys"`
	// MultiTapLayer is the layer selected by tapping the key twice in quick succession.
	MultiTapLayer string `json:"multitapLayer,omitempty" toml:"multitap_layer"`
	Modifier      bool   `json:"modifier,omitempty" toml:"modifier"`
}

func (k *Key) KeyID() string          { return k.ID }
func (k *Key) HasSubkeys() bool       { return len(k.Subkeys) > 0 }
func (k *Key) MultiTapTarget() string { return k.MultiTapLayer }

// Layout is the set of keys and layers of a keyboard.
type Layout struct {
	Keys   map[string]*Key `json:"keys" toml:"keys"`
	Layers []string        `json:"layers" toml:"layers"`
}

// Key looks up a key by ID.
func (l *Layout) Key(id string) (*Key, bool) {
	if l == nil {
		return nil, false
	}
	k, ok := l.Keys[id]
	return k, ok
}

// HasLayer reports whether the keyboard defines the named layer.
func (l *Layout) HasLayer(name string) bool {
	if l == nil {
		return false
	}
	for _, layer := range l.Layers {
		if layer == name {
			return true
		}
	}
	return false
}

// IsModifier reports whether id names a modifier key.
func (l *Layout) IsModifier(id string) bool {
	k, ok := l.Key(id)
	return ok && k.Modifier
}

// HasSubkeys reports whether id names a key with a subkey menu.
func (l *Layout) HasSubkeys(id string) bool {
	k, ok := l.Key(id)
	return ok && k.HasSubkeys()
}

// DefaultLayout returns a Latin layout with accented subkeys on the vowels
// and a shift key that switches to caps on double tap.
func DefaultLayout() *Layout {
	l := &Layout{
		Keys:   make(map[string]*Key),
		Layers: []string{"default", "shift", "caps", "numeric"},
	}
	subkeys := map[string][]string{
		"a": {"à", "á", "â", "ä"},
		"e": {"è", "é", "ê", "ë"},
		"i": {"ì", "í", "î", "ï"},
		"o": {"ò", "ó", "ô", "ö"},
		"u": {"ù", "ú", "û", "ü"},
		"c": {"ç"},
		"n": {"ñ"},
	}
	for _, r := range "abcdefghijklmnopqrstuvwxyz" {
		id := "K_" + strings.ToUpper(string(r))
		k := &Key{ID: id}
		for _, sub := range subkeys[string(r)] {
			k.Subkeys = append(k.Subkeys, "U_"+sub)
		}
		l.Keys[id] = k
	}
	l.Keys["K_SHIFT"] = &Key{ID: "K_SHIFT", MultiTapLayer: "caps", Modifier: true}
	l.Keys["K_NUMLOCK"] = &Key{ID: "K_NUMLOCK", Modifier: true}
	l.Keys["K_SPACE"] = &Key{ID: "K_SPACE"}
	l.Keys["K_BKSP"] = &Key{ID: "K_BKSP"}
	l.Keys["K_ENTER"] = &Key{ID: "K_ENTER"}
	return l
}
