package questions

import (
	"reflect"
	"testing"
)

func mustBank(t *testing.T, recs ...Record) *Bank {
	t.Helper()
	b, err := NewBank(recs, DefaultTimeLimit)
	if err != nil {
		t.Fatalf("NewBank() error: %v", err)
	}
	return b
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Tokyo ": "tokyo",
		"ＴＯＫＹＯ":    "tokyo",
		"　東京\t":    "東京",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuestion_Accepts(t *testing.T) {
	b := mustBank(t, Record{Type: ResponseRace, Data: RecordData{Answers: []string{"Mount Fuji", "Fuji"}}})
	q, _ := b.At(0)

	for _, in := range []string{"mount fuji", " FUJI ", "Ｆｕｊｉ"} {
		if !q.Accepts(in) {
			t.Errorf("Accepts(%q) = false, want true", in)
		}
	}
	if q.Accepts("everest") {
		t.Error("Accepts(everest) = true, want false")
	}
}

func TestQuestion_MatchingPositions(t *testing.T) {
	b := mustBank(t, Record{Type: Ordering, Data: RecordData{Items: []string{"a", "b", "c", "d"}, Answer: []int{2, 0, 3, 1}}})
	q, _ := b.At(0)

	cases := []struct {
		proposed []int
		want     int
	}{
		{[]int{2, 0, 3, 1}, 4},
		{[]int{0, 1, 2, 3}, 0},
		{[]int{2, 0, 1, 3}, 2},
		{[]int{2}, 1},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := q.MatchingPositions(tc.proposed); got != tc.want {
			t.Errorf("MatchingPositions(%v) = %d, want %d", tc.proposed, got, tc.want)
		}
	}
}

func TestQuestion_PayloadStripsKeys(t *testing.T) {
	b := mustBank(t,
		Record{Type: MultipleChoice, Data: RecordData{Prompt: "p", Choices: []string{"a", "b"}, CorrectIndex: intp(1)}},
		Record{Type: ResponseRace, Data: RecordData{Prompt: "v", VideoSrc: "/v.mp4", Answers: []string{"x"}}},
	)

	mcq, _ := b.At(0)
	p := mcq.Payload()
	if p.Prompt != "p" || !reflect.DeepEqual(p.Choices, []string{"a", "b"}) || p.Items != nil || p.VideoSrc != "" {
		t.Errorf("mcq payload = %+v", p)
	}

	race, _ := b.At(1)
	p = race.Payload()
	if p.VideoSrc != "/v.mp4" || p.BuzzHint != DefaultBuzzHint || p.Choices != nil {
		t.Errorf("race payload = %+v", p)
	}
}

func TestQuestion_Key(t *testing.T) {
	b := mustBank(t,
		Record{Type: MultipleChoice, Data: RecordData{Choices: []string{"a", "b", "c"}, CorrectIndex: intp(0)}},
		Record{Type: Ordering, Data: RecordData{Items: []string{"a", "b"}, Answer: []int{1, 0}}},
		Record{Type: ResponseRace, Data: RecordData{Answers: []string{"first", "second"}}},
		Record{Type: ResponseRace, Data: RecordData{Answers: []string{"first"}, RevealText: "The First"}},
	)

	q, _ := b.At(0)
	if k := q.Key(); k.CorrectIndex == nil || *k.CorrectIndex != 0 {
		t.Errorf("mcq key = %+v, want correctIndex 0", k)
	}
	q, _ = b.At(1)
	if k := q.Key(); !reflect.DeepEqual(k.CorrectOrder, []int{1, 0}) {
		t.Errorf("order key = %+v", k)
	}
	q, _ = b.At(2)
	if k := q.Key(); k.CorrectText == nil || *k.CorrectText != "first" {
		t.Errorf("race key = %+v, want first accepted answer", k)
	}
	q, _ = b.At(3)
	if k := q.Key(); k.CorrectText == nil || *k.CorrectText != "The First" {
		t.Errorf("race key = %+v, want reveal text", k)
	}
}
