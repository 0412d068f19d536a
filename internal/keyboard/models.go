package keyboard

import (
	"time"

	"github.com/ayusman/keytouch/internal/gesture"
	"github.com/ayusman/keytouch/internal/recognizer"
)

// Gesture model IDs.
const (
	ModelTap          = "simple-tap"
	ModelLongpress    = "longpress"
	ModelSubkeySelect = "subkey-select"
	ModelFlick        = "flick"
	ModelModipress    = "modipress"
	ModelModipressEnd = "modipress-end"
	// ShapePrefix prefixes the IDs of models built from shape templates.
	ShapePrefix = "shape:"
)

// Model set IDs.
const (
	SetSubkey       = "subkey"
	SetModipress    = "modipress"
	SetModipressEnd = "modipress-end"
)

// Tuning holds the thresholds of the keyboard gesture models.
type Tuning struct {
	Longpress time.Duration
	// LongpressRoam is the distance (px) a longpress may drift before it is abandoned.
	LongpressRoam float64
	// UpFlickDistance is the upward travel (px) that opens the subkey menu early.
	UpFlickDistance float64
	FlickDistance   float64
	// FlickStraightness is the minimum direct/raw distance ratio of a flick.
	FlickStraightness float64
	// ShapeMinDistance is the minimum stroke length (px) considered for shapes.
	ShapeMinDistance float64
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		Longpress:         500 * time.Millisecond,
		LongpressRoam:     10,
		UpFlickDistance:   5,
		FlickDistance:     40,
		FlickStraightness: 0.8,
		ShapeMinDistance:  60,
	}
}

func firstItem(path *gesture.Path) string {
	first, _ := path.First()
	return first.Item
}

func tapContact() recognizer.ContactModel {
	return recognizer.ContactModel{
		OnItemChange:  recognizer.VerdictReject,
		OnPathResolve: recognizer.VerdictResolve,
		PathModel: recognizer.PathModelFunc(func(path *gesture.Path) recognizer.PathResult {
			if path.IsComplete() && !path.WasCancelled() {
				return recognizer.PathResolve
			}
			return recognizer.PathContinue
		}),
	}
}

func releaseContact() recognizer.ContactModel {
	c := tapContact()
	c.OnItemChange = ""
	return c
}

func longpressContact(layout *Layout, t Tuning) recognizer.ContactModel {
	return recognizer.ContactModel{
		OnItemChange:  recognizer.VerdictReject,
		OnPathResolve: recognizer.VerdictResolve,
		Timer:         &recognizer.TimerSpec{Duration: t.Longpress, ExpectedResult: true},
		PathModel: recognizer.PathModelFunc(func(path *gesture.Path) recognizer.PathResult {
			if !layout.HasSubkeys(firstItem(path)) {
				return recognizer.PathReject
			}
			stats := path.Stats()
			if stats.RawDistance() > t.UpFlickDistance && stats.CardinalDirection() == gesture.DirN {
				return recognizer.PathResolve
			}
			if stats.RawDistance() > t.LongpressRoam || path.IsComplete() {
				return recognizer.PathReject
			}
			return recognizer.PathContinue
		}),
	}
}

func flickContact(t Tuning) recognizer.ContactModel {
	return recognizer.ContactModel{
		OnPathResolve: recognizer.VerdictResolve,
		PathModel: recognizer.PathModelFunc(func(path *gesture.Path) recognizer.PathResult {
			if !path.IsComplete() {
				return recognizer.PathContinue
			}
			stats := path.Stats()
			raw := stats.RawDistance()
			if raw < t.FlickDistance || stats.DirectDistance()/raw < t.FlickStraightness {
				return recognizer.PathReject
			}
			if stats.CardinalDirection() == "" {
				return recognizer.PathReject
			}
			return recognizer.PathResolve
		}),
	}
}

func modipressContact(layout *Layout) recognizer.ContactModel {
	return recognizer.ContactModel{
		OnPathResolve: recognizer.VerdictResolve,
		PathModel: recognizer.PathModelFunc(func(path *gesture.Path) recognizer.PathResult {
			if layout.IsModifier(firstItem(path)) {
				return recognizer.PathResolve
			}
			return recognizer.PathReject
		}),
	}
}

func shapeContact(template *gesture.ShapeTemplate, t Tuning) recognizer.ContactModel {
	return recognizer.ContactModel{
		OnPathResolve: recognizer.VerdictResolve,
		PathModel: recognizer.PathModelFunc(func(path *gesture.Path) recognizer.PathResult {
			if !path.IsComplete() {
				return recognizer.PathContinue
			}
			if path.Stats().RawDistance() < t.ShapeMinDistance {
				return recognizer.PathReject
			}
			normalized := gesture.NormalizePath(gesture.Points(path.Samples()))
			if _, ok := gesture.CompareShape(normalized, template); ok {
				return recognizer.PathResolve
			}
			return recognizer.PathReject
		}),
	}
}

// Models builds the keyboard gesture catalogue for layout. Each shape
// template becomes a model named ShapePrefix + template name.
func Models(layout *Layout, t Tuning, shapes []*gesture.ShapeTemplate) *recognizer.GestureModelDefs {
	complete := func(item recognizer.ItemSource) recognizer.ResolutionAction {
		return recognizer.ResolutionAction{Type: recognizer.ResolutionComplete, Item: item}
	}

	models := []*recognizer.GestureModel{
		{
			ID:                 ModelModipress,
			ResolutionPriority: 3,
			Contacts:           []recognizer.ContactModel{modipressContact(layout)},
			Resolution: recognizer.ResolutionAction{
				Type:     recognizer.ResolutionChain,
				Next:     SetModipressEnd,
				Selector: recognizer.SelectorPush,
				PushSet:  SetModipress,
				Item:     recognizer.ItemBase,
			},
		},
		{
			ID:         ModelModipressEnd,
			Contacts:   []recognizer.ContactModel{releaseContact()},
			Resolution: complete(recognizer.ItemBase),
		},
		{
			ID:                 ModelLongpress,
			ResolutionPriority: 2,
			Contacts:           []recognizer.ContactModel{longpressContact(layout, t)},
			Resolution: recognizer.ResolutionAction{
				Type: recognizer.ResolutionChain,
				Next: SetSubkey,
				Item: recognizer.ItemBase,
			},
		},
		{
			ID:         ModelSubkeySelect,
			Contacts:   []recognizer.ContactModel{releaseContact()},
			Resolution: complete(recognizer.ItemCurrent),
		},
	}

	var shapeIDs []string
	for _, tpl := range shapes {
		id := ShapePrefix + tpl.Name
		shapeIDs = append(shapeIDs, id)
		models = append(models, &recognizer.GestureModel{
			ID:                 id,
			ResolutionPriority: 1,
			Contacts:           []recognizer.ContactModel{shapeContact(tpl, t)},
			Resolution:         complete(recognizer.ItemNone),
		})
	}

	models = append(models,
		&recognizer.GestureModel{
			ID:                 ModelFlick,
			ResolutionPriority: 1,
			Contacts:           []recognizer.ContactModel{flickContact(t)},
			Resolution:         complete(recognizer.ItemBase),
		},
		&recognizer.GestureModel{
			ID:         ModelTap,
			Contacts:   []recognizer.ContactModel{tapContact()},
			Resolution: complete(recognizer.ItemCurrent),
		},
	)

	inner := append([]string{ModelLongpress}, shapeIDs...)
	inner = append(inner, ModelFlick, ModelTap)

	return &recognizer.GestureModelDefs{
		Models: models,
		Sets: map[string][]string{
			recognizer.DefaultSetID: append([]string{ModelModipress}, inner...),
			SetModipress:            inner,
			SetModipressEnd:         {ModelModipressEnd},
			SetSubkey:               {ModelSubkeySelect},
		},
	}
}

// Describe returns a short label for a recognized stage, such as
// "flick-ne K_A" or "simple-tap K_B".
func Describe(stage recognizer.GestureStage) string {
	label := stage.ModelID
	if stage.ModelID == ModelFlick && stage.Stats != nil {
		if dir := stage.Stats.CardinalDirection(); dir != "" {
			label += "-" + string(dir)
		}
	}
	if stage.Item != "" {
		label += " " + stage.Item
	}
	return label
}
