package gesture

import (
	"encoding/json"
	"fmt"
)

// Source tracks one contact point. A source created with NewSource owns its
// path and receives samples directly. A subview, created with
// ConstructSubview, mirrors a base source: it holds its own path that is
// extended and terminated whenever the base's path is, until disconnected.
type Source struct {
	rawID       int
	isFromTouch bool
	path        *Path
	baseItem    string

	baseSource *Source
	disconnect func()
}

// NewSource creates a source for a contact point.
func NewSource(id int, isFromTouch bool) *Source {
	return NewSourceWithConfig(id, isFromTouch, DefaultSegmentationConfig())
}

// NewSourceWithConfig creates a source whose path uses custom segmentation thresholds.
func NewSourceWithConfig(id int, isFromTouch bool, config SegmentationConfig) *Source {
	return &Source{
		rawID:       id,
		isFromTouch: isFromTouch,
		path:        NewPathWithConfig(config),
	}
}

// Identifier distinguishes touch and mouse contacts that share a raw ID.
func (s *Source) Identifier() string {
	kind := "mouse"
	if s.isFromTouch {
		kind = "touch"
	}
	return fmt.Sprintf("%s:%d", kind, s.rawID)
}

func (s *Source) RawID() int           { return s.rawID }
func (s *Source) IsFromTouch() bool    { return s.isFromTouch }
func (s *Source) Path() *Path          { return s.path }
func (s *Source) BaseItem() string     { return s.baseItem }
func (s *Source) IsSubview() bool      { return s.baseSource != nil }
func (s *Source) IsPathComplete() bool { return s.path.IsComplete() }

// BaseSource returns the real contact behind a subview, or nil for a real contact.
func (s *Source) BaseSource() *Source { return s.baseSource }

// Root returns the real contact behind the source.
func (s *Source) Root() *Source {
	if s.baseSource != nil {
		return s.baseSource
	}
	return s
}

// CurrentSample returns the most recent sample of the path.
func (s *Source) CurrentSample() (InputSample, bool) {
	return s.path.Last()
}

// Update appends a sample. The first non-empty item becomes the base item.
func (s *Source) Update(sample InputSample) {
	if s.baseItem == "" {
		s.baseItem = sample.Item
	}
	s.path.Extend(sample)
}

// UpdateWithItem appends a sample tagged with the hovered item.
func (s *Source) UpdateWithItem(sample InputSample, item string) {
	s.Update(sample.WithItem(item))
}

// ConstructSubview creates a view onto this source's contact. With startAtEnd
// the subview's path begins at the current sample; otherwise it starts as a
// full copy of the path. With preserveBaseItem the subview keeps this
// source's base item; otherwise the current sample's item becomes its base.
// Subviews of subviews attach to the same underlying contact.
func (s *Source) ConstructSubview(startAtEnd, preserveBaseItem bool) *Source {
	base := s.Root()
	sub := &Source{
		rawID:       s.rawID,
		isFromTouch: s.isFromTouch,
		baseSource:  base,
	}

	last, hasLast := s.path.Last()
	if startAtEnd {
		sub.path = NewPathWithConfig(s.path.Config())
		if hasLast {
			sub.path.Extend(last)
		}
	} else {
		sub.path = s.path.Clone()
	}

	if preserveBaseItem {
		sub.baseItem = s.baseItem
	} else if hasLast {
		sub.baseItem = last.Item
	}

	unsubs := []func(){
		base.path.OnComplete(func() { sub.path.Terminate(false) }),
		base.path.OnInvalidated(func() { sub.path.Terminate(true) }),
		base.path.OnStep(func(sample InputSample) { sub.Update(sample) }),
	}
	sub.disconnect = func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
	return sub
}

// Disconnect stops a subview from following its base. It is a no-op on real
// contacts and on subviews that are already disconnected.
func (s *Source) Disconnect() {
	if s.disconnect == nil {
		return
	}
	s.disconnect()
	s.disconnect = nil
}

// Terminate ends the contact. On a subview this terminates the base contact.
func (s *Source) Terminate(cancel bool) {
	if s.baseSource != nil {
		s.baseSource.Terminate(cancel)
		return
	}
	s.path.Terminate(cancel)
}

// SerializedSource is the JSON form of a source. Identifiers are not
// serialized; the owner of the ID counter assigns one on load.
type SerializedSource struct {
	IsFromTouch bool           `json:"isFromTouch"`
	Path        SerializedPath `json:"path"`
}

func (s *Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(SerializedSource{IsFromTouch: s.isFromTouch, Path: s.path.Serialize()})
}

// DeserializeSource rebuilds a source from its JSON form under the given id.
func DeserializeSource(data []byte, id int, config SegmentationConfig) (*Source, error) {
	var ss SerializedSource
	if err := json.Unmarshal(data, &ss); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	return SourceFromSerialized(ss, id, config), nil
}

// SourceFromSerialized rebuilds a source from an already decoded form.
func SourceFromSerialized(ss SerializedSource, id int, config SegmentationConfig) *Source {
	src := NewSourceWithConfig(id, ss.IsFromTouch, config)
	for _, sample := range ss.Path.Coords {
		src.Update(sample)
	}
	if ss.Path.IsComplete || ss.Path.WasCancelled {
		src.Terminate(ss.Path.WasCancelled)
	}
	return src
}
