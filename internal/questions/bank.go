package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultTimeLimit = 15 * time.Second

var ErrInvalidQuestion = errors.New("invalid question")

// Record is one entry of a question bank file.
type Record struct {
	Type         Type       `json:"type" yaml:"type"`
	TimeLimitSec *int       `json:"timeLimitSec,omitempty" yaml:"timeLimitSec,omitempty"`
	Data         RecordData `json:"data" yaml:"data"`
}

type RecordData struct {
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Choices      []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	CorrectIndex *int     `json:"correctIndex,omitempty" yaml:"correctIndex,omitempty"`
	Items        []string `json:"items,omitempty" yaml:"items,omitempty"`
	Answer       []int    `json:"answer,omitempty" yaml:"answer,omitempty"`
	VideoSrc     string   `json:"videoSrc,omitempty" yaml:"videoSrc,omitempty"`
	BuzzHint     string   `json:"buzzHint,omitempty" yaml:"buzzHint,omitempty"`
	Answers      []string `json:"answers,omitempty" yaml:"answers,omitempty"`
	RevealText   string   `json:"revealText,omitempty" yaml:"revealText,omitempty"`
}

// Bank is the ordered question sequence. It is never mutated after construction.
type Bank struct {
	questions []*Question
}

func NewBank(records []Record, defaultLimit time.Duration) (*Bank, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultTimeLimit
	}
	b := &Bank{questions: make([]*Question, 0, len(records))}
	for i, rec := range records {
		q, err := build(rec, defaultLimit)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		b.questions = append(b.questions, q)
	}
	return b, nil
}

// Load reads a bank from a JSON file, or YAML when the extension is .yaml or .yml.
func Load(path string, defaultLimit time.Duration) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank: %w", err)
	}

	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing question bank %s: %w", path, err)
	}
	return NewBank(records, defaultLimit)
}

func (b *Bank) Len() int {
	return len(b.questions)
}

func (b *Bank) At(i int) (*Question, bool) {
	if i < 0 || i >= len(b.questions) {
		return nil, false
	}
	return b.questions[i], true
}

func build(rec Record, defaultLimit time.Duration) (*Question, error) {
	q := &Question{
		Type:      rec.Type,
		Prompt:    rec.Data.Prompt,
		TimeLimit: defaultLimit,
	}
	if rec.TimeLimitSec != nil {
		if *rec.TimeLimitSec <= 0 {
			return nil, fmt.Errorf("%w: timeLimitSec must be positive", ErrInvalidQuestion)
		}
		q.TimeLimit = time.Duration(*rec.TimeLimitSec) * time.Second
	}

	d := rec.Data
	switch rec.Type {
	case MultipleChoice:
		if len(d.Choices) == 0 {
			return nil, fmt.Errorf("%w: mcq without choices", ErrInvalidQuestion)
		}
		if d.CorrectIndex == nil || *d.CorrectIndex < 0 || *d.CorrectIndex >= len(d.Choices) {
			return nil, fmt.Errorf("%w: correctIndex out of range", ErrInvalidQuestion)
		}
		q.Choices = d.Choices
		q.CorrectIndex = *d.CorrectIndex

	case Ordering:
		if len(d.Items) == 0 {
			return nil, fmt.Errorf("%w: order without items", ErrInvalidQuestion)
		}
		if !isPermutation(d.Answer, len(d.Items)) {
			return nil, fmt.Errorf("%w: answer must be a permutation of item indices", ErrInvalidQuestion)
		}
		q.Items = d.Items
		q.CorrectOrder = d.Answer

	case ResponseRace:
		q.VideoSrc = d.VideoSrc
		q.BuzzHint = d.BuzzHint
		if q.BuzzHint == "" {
			q.BuzzHint = DefaultBuzzHint
		}
		q.RevealText = d.RevealText
		q.accepted = make(map[string]struct{}, len(d.Answers))
		for _, a := range d.Answers {
			if n := Normalize(a); n != "" {
				q.accepted[n] = struct{}{}
				q.Answers = append(q.Answers, a)
			}
		}
		if len(q.accepted) == 0 {
			return nil, fmt.Errorf("%w: video-buzz without answers", ErrInvalidQuestion)
		}

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidQuestion, rec.Type)
	}
	return q, nil
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
