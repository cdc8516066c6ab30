package questions

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type Type string

const (
	MultipleChoice = Type("mcq")
	Ordering       = Type("order")
	ResponseRace   = Type("video-buzz")
)

const DefaultBuzzHint = "Buzz in as soon as you know it!"

// Question is an immutable, validated question definition. Questions are
// shared read-only by every room.
type Question struct {
	Type      Type
	Prompt    string
	TimeLimit time.Duration

	// MultipleChoice
	Choices      []string
	CorrectIndex int

	// Ordering: CorrectOrder holds item indices in canonical order.
	Items        []string
	CorrectOrder []int

	// ResponseRace
	VideoSrc   string
	BuzzHint   string
	Answers    []string
	RevealText string

	accepted map[string]struct{}
}

// Payload is the public part of a question, safe to send before the reveal.
type Payload struct {
	Prompt   string   `json:"prompt"`
	Choices  []string `json:"choices,omitempty"`
	Items    []string `json:"items,omitempty"`
	VideoSrc string   `json:"videoSrc,omitempty"`
	BuzzHint string   `json:"buzzHint,omitempty"`
}

// Key is the type-specific answer key published on reveal. Exactly one field is set.
type Key struct {
	CorrectIndex *int    `json:"correctIndex,omitempty"`
	CorrectOrder []int   `json:"correctOrder,omitempty"`
	CorrectText  *string `json:"correctText,omitempty"`
}

func (q *Question) Payload() Payload {
	p := Payload{Prompt: q.Prompt}
	switch q.Type {
	case MultipleChoice:
		p.Choices = q.Choices
	case Ordering:
		p.Items = q.Items
	case ResponseRace:
		p.VideoSrc = q.VideoSrc
		p.BuzzHint = q.BuzzHint
	}
	return p
}

func (q *Question) Key() Key {
	switch q.Type {
	case MultipleChoice:
		idx := q.CorrectIndex
		return Key{CorrectIndex: &idx}
	case Ordering:
		return Key{CorrectOrder: append([]int(nil), q.CorrectOrder...)}
	case ResponseRace:
		text := q.RevealText
		if text == "" && len(q.Answers) > 0 {
			text = q.Answers[0]
		}
		return Key{CorrectText: &text}
	}
	return Key{}
}

// MatchingPositions counts the positions where proposed agrees with the
// canonical order. Missing trailing positions count as mismatches.
func (q *Question) MatchingPositions(proposed []int) int {
	matches := 0
	for i, want := range q.CorrectOrder {
		if i < len(proposed) && proposed[i] == want {
			matches++
		}
	}
	return matches
}

// Accepts reports whether text is one of the accepted answers after normalization.
func (q *Question) Accepts(text string) bool {
	_, ok := q.accepted[Normalize(text)]
	return ok
}

// Normalize folds width and case and trims surrounding space so that
// "  ＴＯＫＹＯ " and "tokyo" compare equal.
func Normalize(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	return cases.Fold().String(s)
}
