// Package wordbreak splits text into word spans and joins spans that are
// connected by delimiter characters, such as hyphenated compounds.
package wordbreak

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// ErrNonContiguousSpans is returned when two spans with a gap between them
// are concatenated.
var ErrNonContiguousSpans = errors.New("cannot concatenate non-contiguous spans")

// Span is a run of text located by byte offsets into its input.
type Span struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Length int    `json:"length"`
	Text   string `json:"text"`
}

// Breaker splits input into spans.
type Breaker func(input string) []Span

// Default breaks text on Unicode word boundaries (UAX #29) and drops
// whitespace-only segments.
func Default(input string) []Span {
	var spans []Span
	seg := words.FromString(input)
	for seg.Next() {
		text := seg.Value()
		if strings.TrimFunc(text, unicode.IsSpace) == "" {
			continue
		}
		spans = append(spans, Span{Start: seg.Start(), End: seg.End(), Length: len(text), Text: text})
	}
	return spans
}

// ConcatenateSpans merges latter onto the end of former.
func ConcatenateSpans(former, latter Span) (Span, error) {
	if latter.Start != former.End {
		return Span{}, fmt.Errorf("%w: [%d,%d) then [%d,%d)", ErrNonContiguousSpans,
			former.Start, former.End, latter.Start, latter.End)
	}
	return Span{
		Start:  former.Start,
		End:    latter.End,
		Length: former.Length + latter.Length,
		Text:   former.Text + latter.Text,
	}, nil
}

type joinState int

const (
	stateInitial joinState = iota
	// stateUnjoined: the top span does not end in a delimiter.
	stateUnjoined
	// stateJoined: the top span ends in a delimiter and absorbs the next
	// span if it is back to back.
	stateJoined
)

type joiner struct {
	delimiters []string
	state      joinState
	stack      []Span
}

// Join decorates breaker so that spans connected by any of joiners are
// merged into one, provided the spans touch with no gap between them.
func Join(breaker Breaker, joiners []string) Breaker {
	delimiters := slices.Clone(joiners)
	return func(input string) []Span {
		j := &joiner{delimiters: delimiters}
		for _, span := range breaker(input) {
			j.step(span)
		}
		return j.stack
	}
}

func (j *joiner) step(span Span) {
	isDelimiter := slices.Contains(j.delimiters, span.Text)

	switch j.state {
	case stateInitial:
		j.stack = append(j.stack, span)

	case stateUnjoined:
		if isDelimiter && j.backToBack(span) {
			j.appendToTop(span)
		} else {
			j.stack = append(j.stack, span)
		}

	case stateJoined:
		if j.backToBack(span) {
			j.appendToTop(span)
		} else {
			j.stack = append(j.stack, span)
		}
	}

	if isDelimiter {
		j.state = stateJoined
	} else {
		j.state = stateUnjoined
	}
}

func (j *joiner) backToBack(span Span) bool {
	return j.stack[len(j.stack)-1].End == span.Start
}

func (j *joiner) appendToTop(span Span) {
	top := len(j.stack) - 1
	joined, err := ConcatenateSpans(j.stack[top], span)
	if err != nil {
		// backToBack was checked by every caller.
		panic(err)
	}
	j.stack[top] = joined
}
