package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects game metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	RoomOpened()
	RoomClosed()
	PlayerJoined()
	PlayerLeft()
	AnswerRecorded(kind string, correct bool)
	BuzzContended()
	RevealFired()
	GameFinished()
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) RoomOpened()                 {}
func (NoOp) RoomClosed()                 {}
func (NoOp) PlayerJoined()               {}
func (NoOp) PlayerLeft()                 {}
func (NoOp) AnswerRecorded(string, bool) {}
func (NoOp) BuzzContended()              {}
func (NoOp) RevealFired()                {}
func (NoOp) GameFinished()               {}

type Prometheus struct {
	registry   *prometheus.Registry
	rooms      prometheus.Gauge
	players    prometheus.Gauge
	answers    *prometheus.CounterVec
	contention prometheus.Counter
	reveals    prometheus.Counter
	finished   prometheus.Counter
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		rooms: f.NewGauge(prometheus.GaugeOpts{
			Name: "trivia_rooms_active",
			Help: "Rooms currently registered.",
		}),
		players: f.NewGauge(prometheus.GaugeOpts{
			Name: "trivia_players_active",
			Help: "Players currently seated in a room.",
		}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_answers_total",
			Help: "Accepted answer submissions by question type and outcome.",
		}, []string{"type", "result"}),
		contention: f.NewCounter(prometheus.CounterOpts{
			Name: "trivia_buzz_contention_total",
			Help: "Buzz attempts that lost the race for the lock.",
		}),
		reveals: f.NewCounter(prometheus.CounterOpts{
			Name: "trivia_reveals_total",
			Help: "Scheduled reveals that fired.",
		}),
		finished: f.NewCounter(prometheus.CounterOpts{
			Name: "trivia_games_finished_total",
			Help: "Games that reached the finished state.",
		}),
	}
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) RoomOpened()    { p.rooms.Inc() }
func (p *Prometheus) RoomClosed()    { p.rooms.Dec() }
func (p *Prometheus) PlayerJoined()  { p.players.Inc() }
func (p *Prometheus) PlayerLeft()    { p.players.Dec() }
func (p *Prometheus) BuzzContended() { p.contention.Inc() }
func (p *Prometheus) RevealFired()   { p.reveals.Inc() }
func (p *Prometheus) GameFinished()  { p.finished.Inc() }

func (p *Prometheus) AnswerRecorded(kind string, correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	p.answers.WithLabelValues(kind, result).Inc()
}
