package recognizer

import (
	"fmt"
	"time"
)

// DefaultSetID names the model set used by the base selector.
const DefaultSetID = "default"

// ResolutionKind says what happens once a gesture model matches.
type ResolutionKind string

const (
	// ResolutionComplete ends the gesture sequence.
	ResolutionComplete ResolutionKind = "complete"
	// ResolutionChain continues the sequence by matching the Next model set
	// against the same contact.
	ResolutionChain ResolutionKind = "chain"
)

// SelectorMode controls whether a resolution pushes a new selector.
type SelectorMode string

const (
	SelectorNone SelectorMode = ""
	// SelectorPush routes new contacts to a selector scoped to the Next model
	// set until the sequence completes.
	SelectorPush SelectorMode = "push"
)

// ItemSource chooses the item a matched gesture reports.
type ItemSource string

const (
	ItemCurrent ItemSource = "current"
	ItemBase    ItemSource = "base"
	ItemNone    ItemSource = "none"
)

// ResolutionAction describes what a matched gesture does next.
type ResolutionAction struct {
	Type ResolutionKind `json:"type"`
	// Next is the model set matched against the contact when chaining.
	Next     string       `json:"next,omitempty"`
	Selector SelectorMode `json:"selector,omitempty"`
	// PushSet is the model set of a pushed selector. Defaults to Next.
	PushSet string     `json:"pushSet,omitempty"`
	Item    ItemSource `json:"item,omitempty"`
}

func (a ResolutionAction) pushSet() string {
	if a.PushSet != "" {
		return a.PushSet
	}
	return a.Next
}

// GestureModel describes a gesture made of one or more contacts.
type GestureModel struct {
	ID string
	// ResolutionPriority breaks ties between competing models sharing a
	// contact: a resolved model waits while a higher-priority model is pending.
	ResolutionPriority int
	Contacts           []ContactModel
	// ContactTimeout bounds how long a multi-contact model waits for its
	// additional contacts.
	ContactTimeout time.Duration
	Resolution     ResolutionAction
}

// GestureModelDefs is a catalogue of gesture models grouped into named sets.
type GestureModelDefs struct {
	Models []*GestureModel
	Sets   map[string][]string
}

// Model looks up a model by ID.
func (d *GestureModelDefs) Model(id string) (*GestureModel, bool) {
	for _, m := range d.Models {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// ModelSet returns the models of a named set in set order. When no default
// set is declared, DefaultSetID yields every model.
func (d *GestureModelDefs) ModelSet(setID string) []*GestureModel {
	ids, ok := d.Sets[setID]
	if !ok {
		if setID == DefaultSetID {
			return append([]*GestureModel(nil), d.Models...)
		}
		return nil
	}
	models := make([]*GestureModel, 0, len(ids))
	for _, id := range ids {
		if m, ok := d.Model(id); ok {
			models = append(models, m)
		}
	}
	return models
}

// Validate checks that every model has contacts and that set members and
// chain targets exist.
func (d *GestureModelDefs) Validate() error {
	seen := make(map[string]bool, len(d.Models))
	for _, m := range d.Models {
		if m.ID == "" {
			return fmt.Errorf("gesture model without id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate gesture model %q", m.ID)
		}
		seen[m.ID] = true
		if len(m.Contacts) == 0 {
			return fmt.Errorf("gesture model %q has no contacts", m.ID)
		}
		for i := range m.Contacts {
			if m.Contacts[i].PathModel == nil {
				return fmt.Errorf("gesture model %q contact %d has no path model", m.ID, i)
			}
		}
	}
	for setID, ids := range d.Sets {
		for _, id := range ids {
			if !seen[id] {
				return fmt.Errorf("model set %q references unknown model %q", setID, id)
			}
		}
	}
	for _, m := range d.Models {
		r := m.Resolution
		if r.Type == ResolutionChain && r.Next == "" {
			return fmt.Errorf("gesture model %q chains without a next model set", m.ID)
		}
		if r.Selector == SelectorPush && r.pushSet() == "" {
			return fmt.Errorf("gesture model %q pushes a selector without a model set", m.ID)
		}
		for _, set := range []string{r.Next, r.PushSet} {
			if _, ok := d.Sets[set]; set != "" && !ok && set != DefaultSetID {
				return fmt.Errorf("gesture model %q resolves to unknown model set %q", m.ID, set)
			}
		}
	}
	return nil
}
