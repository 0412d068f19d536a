package recognizer

import (
	"time"

	"github.com/ayusman/keytouch/internal/gesture"
)

func resolveOnRelease() PathModel {
	return PathModelFunc(func(p *gesture.Path) PathResult {
		if p.IsComplete() && !p.WasCancelled() {
			return PathResolve
		}
		return PathContinue
	})
}

func tapModel(id string, priority int) *GestureModel {
	return &GestureModel{
		ID:                 id,
		ResolutionPriority: priority,
		Contacts:           []ContactModel{{PathModel: resolveOnRelease()}},
		Resolution:         ResolutionAction{Type: ResolutionComplete, Item: ItemCurrent},
	}
}

func holdModel(id string, priority int, d time.Duration) *GestureModel {
	return &GestureModel{
		ID:                 id,
		ResolutionPriority: priority,
		Contacts: []ContactModel{{
			PathModel:    constantModel(PathContinue),
			OnItemChange: VerdictReject,
			Timer:        &TimerSpec{Duration: d, ExpectedResult: true},
		}},
		Resolution: ResolutionAction{Type: ResolutionComplete, Item: ItemBase},
	}
}

func instantModel(id string, priority int) *GestureModel {
	return &GestureModel{
		ID:                 id,
		ResolutionPriority: priority,
		Contacts:           []ContactModel{{PathModel: constantModel(PathResolve)}},
		Resolution:         ResolutionAction{Type: ResolutionComplete, Item: ItemBase},
	}
}

func touch(id int, x, y, t float64, item string) *gesture.Source {
	src := gesture.NewSource(id, true)
	src.Update(at(x, y, t, item))
	return src
}

type selectionProbe struct {
	selections []Selection
}

func (p *selectionProbe) record(sel Selection) { p.selections = append(p.selections, sel) }

func (p *selectionProbe) last() (Selection, bool) {
	if len(p.selections) == 0 {
		return Selection{}, false
	}
	return p.selections[len(p.selections)-1], true
}
