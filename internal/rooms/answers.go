package rooms

import (
	"fmt"

	"triviaroom/internal/events"
	"triviaroom/internal/players"
	"triviaroom/internal/questions"
	"triviaroom/internal/scoring"

	"github.com/rs/zerolog/log"
)

type ChoiceResult struct {
	Correct bool
	Gained  int
}

type OrderResult struct {
	Matches int
	Total   int
	Gained  int
}

// BuzzResult reports the outcome of a buzz. When Won is false, LockedBy names
// the connection that already holds the buzzer.
type BuzzResult struct {
	Won      bool
	LockedBy string
}

// currentLocked returns the open question of the given type for a member.
func (r *Room) currentLocked(id string, want questions.Type) (*players.Player, *questions.Question, error) {
	if r.closed {
		return nil, nil, ErrRoomNotFound
	}
	p := r.roster.Get(id)
	if p == nil {
		return nil, nil, fmt.Errorf("%w: not a member of room %s", ErrNotAuthorized, r.code)
	}
	if r.status != StatusInGame {
		return nil, nil, fmt.Errorf("%w: game is %s", ErrInvalidState, r.status)
	}
	q, ok := r.bank.At(r.cursor)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no current question", ErrInvalidState)
	}
	if q.Type != want {
		return nil, nil, fmt.Errorf("%w: current question is %s", ErrInvalidState, q.Type)
	}
	if r.revealed {
		return nil, nil, fmt.Errorf("%w: question closed", ErrInvalidState)
	}
	return p, q, nil
}

// AnswerChoice records a multiple-choice answer.
func (r *Room) AnswerChoice(id string, choice int) (ChoiceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, q, err := r.currentLocked(id, questions.MultipleChoice)
	if err != nil {
		return ChoiceResult{}, err
	}
	if p.Answered {
		return ChoiceResult{}, ErrAlreadyAnswered
	}
	p.Answered = true

	res := ChoiceResult{Correct: choice == q.CorrectIndex}
	if res.Correct {
		res.Gained = scoring.ScoreFor(r.sentAt, r.sched.Clock().Now())
		r.roster.Award(id, res.Gained)
	}
	r.metrics.AnswerRecorded(string(q.Type), res.Correct)
	log.Debug().Str("room", r.code).Str("conn", id).Bool("correct", res.Correct).Int("gained", res.Gained).Msg("choice answered")
	return res, nil
}

// AnswerOrder records an ordering answer. order lists item indices.
func (r *Room) AnswerOrder(id string, order []int) (OrderResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, q, err := r.currentLocked(id, questions.Ordering)
	if err != nil {
		return OrderResult{}, err
	}
	if p.Answered {
		return OrderResult{}, ErrAlreadyAnswered
	}
	p.Answered = true

	res := OrderResult{
		Matches: q.MatchingPositions(order),
		Total:   len(q.CorrectOrder),
	}
	res.Gained = scoring.OrderingGain(r.sentAt, r.sched.Clock().Now(), res.Matches, res.Total)
	r.roster.Award(id, res.Gained)
	r.metrics.AnswerRecorded(string(q.Type), res.Matches == res.Total)
	log.Debug().Str("room", r.code).Str("conn", id).Int("matches", res.Matches).Int("gained", res.Gained).Msg("order answered")
	return res, nil
}

// Buzz claims the buzzer for the current response-race question. Losing the
// race is not an error.
func (r *Room) Buzz(id string) (BuzzResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, _, err := r.currentLocked(id, questions.ResponseRace)
	if err != nil {
		return BuzzResult{}, err
	}
	if r.buzzer != "" {
		r.metrics.BuzzContended()
		return BuzzResult{LockedBy: r.buzzer}, nil
	}

	r.buzzer = id
	r.out.Broadcast(events.Event{Type: events.BuzzLocked, Data: events.BuzzLockedPayload{BuzzerID: id, Name: p.Name}})
	log.Info().Str("room", r.code).Str("conn", id).Msg("buzzer locked")
	return BuzzResult{Won: true}, nil
}

// SubmitBuzzAnswer checks the buzzer holder's answer. One attempt is allowed
// per question and the lock stays held whatever the outcome.
func (r *Room) SubmitBuzzAnswer(id, text string) (ChoiceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, q, err := r.currentLocked(id, questions.ResponseRace)
	if err != nil {
		return ChoiceResult{}, err
	}
	if r.buzzer == "" {
		return ChoiceResult{}, ErrNoActiveBuzzer
	}
	if r.buzzer != id {
		return ChoiceResult{}, fmt.Errorf("%w: buzzer held by another player", ErrNotAuthorized)
	}
	if p.Answered {
		return ChoiceResult{}, ErrAlreadyAnswered
	}
	p.Answered = true

	res := ChoiceResult{Correct: q.Accepts(text)}
	if res.Correct {
		res.Gained = scoring.RaceGain(r.sentAt, r.sched.Clock().Now())
		r.roster.Award(id, res.Gained)
	}
	r.out.Broadcast(events.Event{Type: events.BuzzResult, Data: events.BuzzResultPayload{
		BuzzerID: id,
		Name:     p.Name,
		Correct:  res.Correct,
		Gained:   res.Gained,
	}})
	r.metrics.AnswerRecorded(string(q.Type), res.Correct)
	log.Info().Str("room", r.code).Str("conn", id).Bool("correct", res.Correct).Int("gained", res.Gained).Msg("buzz answered")
	return res, nil
}
