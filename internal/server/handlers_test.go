package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"triviaroom/internal/db"
	"triviaroom/internal/gateway"
	"triviaroom/internal/metrics"
	"triviaroom/internal/players"
	"triviaroom/internal/questions"
	"triviaroom/internal/rooms"
	"triviaroom/internal/wshub"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type fakeArchive struct {
	mu      sync.Mutex
	games   []db.GameRecord
	pingErr error
}

func (f *fakeArchive) RecordGame(_ context.Context, g db.GameRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.ID = "game-" + g.RoomCode
	f.games = append(f.games, g)
	return g.ID, nil
}

func (f *fakeArchive) RecentGames(_ context.Context, limit int) ([]db.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.games[:min(limit, len(f.games))], nil
}

func (f *fakeArchive) Ping(context.Context) error {
	return f.pingErr
}

func newTestServer(t *testing.T, archive Archive) (*Server, *httptest.Server) {
	t.Helper()
	idx := 1
	bank, err := questions.NewBank([]questions.Record{
		{Type: questions.MultipleChoice, Data: questions.RecordData{Prompt: "?", Choices: []string{"a", "b"}, CorrectIndex: &idx}},
	}, questions.DefaultTimeLimit)
	if err != nil {
		t.Fatal(err)
	}

	prom := metrics.NewPrometheus()
	store := rooms.NewStore(bank, rooms.DefaultConfig(), rooms.Options{Metrics: prom})
	t.Cleanup(store.Shutdown)

	srv := &Server{
		Rooms:   store,
		Hub:     wshub.NewHub(gateway.New(store), wshub.Options{}),
		Metrics: prom,
		Archive: archive,
	}
	ts := httptest.NewServer(srv.Routes([]string{"*"}))
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHandleHealth(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.Rooms.Create("h1", "Hana", nil)

	var body struct {
		Status string `json:"status"`
		Rooms  int    `json:"rooms"`
	}
	if code := getJSON(t, ts.URL+"/healthz", &body); code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if body.Status != "ok" || body.Rooms != 1 {
		t.Errorf("body = %+v, want ok with 1 room", body)
	}
}

func TestHandleHealth_DatabaseDown(t *testing.T) {
	_, ts := newTestServer(t, &fakeArchive{pingErr: errors.New("connection refused")})

	var body struct {
		Status string `json:"status"`
	}
	if code := getJSON(t, ts.URL+"/healthz", &body); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Status != "db_error" {
		t.Errorf("status field = %q, want db_error", body.Status)
	}
}

func TestHandleRoom(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	room, _, _ := srv.Rooms.Create("h1", "Hana", nil)
	srv.Rooms.Join(room.Code(), "p1", "Pat", nil)
	room.Start("h1")

	var got rooms.Summary
	if code := getJSON(t, ts.URL+"/rooms/"+strings.ToLower(room.Code()), &got); code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	want := rooms.Summary{Code: room.Code(), Status: rooms.StatusInGame, Players: 2, Question: 1, Total: 1}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}

	if code := getJSON(t, ts.URL+"/rooms/NOPE99", nil); code != http.StatusNotFound {
		t.Errorf("unknown room status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestHandleMetrics(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.Rooms.Create("h1", "", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "trivia_rooms_active 1") {
		t.Errorf("metrics output missing trivia_rooms_active 1")
	}
}

func TestHandleGames(t *testing.T) {
	archive := &fakeArchive{games: []db.GameRecord{{
		ID: "g1", RoomCode: "ABC123", HostName: "Hana", Questions: 3,
		Players: []db.GamePlayer{{ConnID: "p1", Name: "Pat", FinalScore: 800, Rank: 1}},
	}}}
	_, ts := newTestServer(t, archive)

	var got []gameView
	if code := getJSON(t, ts.URL+"/games?limit=5", &got); code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	if len(got) != 1 || got[0].RoomCode != "ABC123" || len(got[0].Players) != 1 || got[0].Players[0].Score != 800 {
		t.Errorf("games = %+v", got)
	}

	if code := getJSON(t, ts.URL+"/games?limit=zero", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestHandleGames_Disabled(t *testing.T) {
	_, ts := newTestServer(t, nil)
	if code := getJSON(t, ts.URL+"/games", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestWebSocketRoute(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	if err := wsjson.Write(ctx, c, map[string]any{"t": "createRoom", "id": 1, "d": map[string]any{"name": "Hana"}}); err != nil {
		t.Fatal(err)
	}
	for {
		var f struct {
			T string `json:"t"`
		}
		if err := wsjson.Read(ctx, c, &f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.T == "ack" {
			break
		}
	}
	if srv.Rooms.Len() != 1 {
		t.Errorf("rooms = %d, want 1", srv.Rooms.Len())
	}
}

func TestArchiveWriter(t *testing.T) {
	archive := &fakeArchive{}
	buffer := make(chan rooms.Result, 1)

	enqueue := enqueueResult(buffer)
	enqueue(rooms.Result{RoomCode: "ABC123", Leaderboard: []players.View{
		{ID: "p1", Name: "Pat", Score: 800},
		{ID: "h1", Name: "Hana", Score: 0},
	}})
	// Buffer full: dropped without blocking.
	enqueue(rooms.Result{RoomCode: "DROPPED"})
	close(buffer)

	archiveWriter(archive, buffer)

	if len(archive.games) != 1 {
		t.Fatalf("archived %d games, want 1", len(archive.games))
	}
	g := archive.games[0]
	if g.RoomCode != "ABC123" || len(g.Players) != 2 {
		t.Fatalf("game = %+v", g)
	}
	if g.Players[0].Rank != 1 || g.Players[1].Rank != 2 || g.Players[0].FinalScore != 800 {
		t.Errorf("players = %+v, want ranks from leaderboard order", g.Players)
	}
}
