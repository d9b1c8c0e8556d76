package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizhall/internal/domain"
)

func newTestRoomService() *RoomService {
	bank := NewBankService(&countingLoader{bank: testBank()})
	return NewRoomService(bank)
}

func TestCreateRoomRegistersHost(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, players, err := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(code) != roomCodeLength {
		t.Fatalf("expected %d-char code, got %q", roomCodeLength, code)
	}
	if len(players) != 1 || players[0].ClientID != "H" || !players[0].IsHost {
		t.Fatalf("host not registered: %+v", players)
	}
}

func TestRoomCodesAreUnique(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	codes := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, _, err := service.CreateRoom(ctx, "H", "Host", "conn", "list1")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if codes[code] {
			t.Fatalf("duplicate room code %q", code)
		}
		codes[code] = true
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	service := newTestRoomService()

	if _, err := service.JoinRoom("NOSUCH", "P", "Player", "conn-p", ""); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestJoinAfterStartFails(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	if err := service.StartGame(code, "H"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", ""); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestJoinSyntheticListMismatch(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")

	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", domain.ListRandom120); !errors.Is(err, domain.ErrListMismatch) {
		t.Fatalf("expected ErrListMismatch, got %v", err)
	}
	// Non-synthetic keys and the room's own key are accepted.
	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", "list1"); err != nil {
		t.Fatalf("join with matching list: %v", err)
	}
}

func TestRejoinKeepsScoreAndProgress(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	if _, err := service.JoinRoom(code, "P", "Player", "conn-p1", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	service.UpdateProgress(code, "P", 2)

	players, err := service.JoinRoom(code, "P", "Player Renamed", "conn-p2", "")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	for _, p := range players {
		if p.ClientID == "P" {
			if p.Progress != 2 {
				t.Fatalf("rejoin lost progress: %+v", p)
			}
			if p.DisplayName != "Player Renamed" {
				t.Fatalf("rejoin kept stale name: %+v", p)
			}
			return
		}
	}
	t.Fatalf("player P missing after rejoin: %+v", players)
}

func TestStartGameRequiresHost(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := service.StartGame(code, "P"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := service.StartGame(code, "H"); err != nil {
		t.Fatalf("host start: %v", err)
	}
}

func TestStartGameBroadcastsIdenticalQuestions(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")

	hostCh, hostCancel, err := service.Subscribe(code)
	if err != nil {
		t.Fatalf("subscribe host: %v", err)
	}
	defer hostCancel()

	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	playerCh, playerCancel, err := service.Subscribe(code)
	if err != nil {
		t.Fatalf("subscribe player: %v", err)
	}
	defer playerCancel()

	if err := service.StartGame(code, "H"); err != nil {
		t.Fatalf("start: %v", err)
	}

	hostStart := waitForEvent(t, hostCh, domain.EventGameStarted)
	playerStart := waitForEvent(t, playerCh, domain.EventGameStarted)

	if len(hostStart.Questions) != 3 || len(playerStart.Questions) != 3 {
		t.Fatalf("expected both players to receive 3 questions")
	}
	for i := range hostStart.Questions {
		if hostStart.Questions[i].Text != playerStart.Questions[i].Text {
			t.Fatalf("players received different question sequences")
		}
	}
	if !hostStart.StartTime.Equal(playerStart.StartTime) {
		t.Fatalf("players received different start times")
	}
}

func TestSubmitOrdersLeaderboardByScoreThenTime(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	now := time.Now()
	service.now = func() time.Time { return now }

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.StartGame(code, "H"); err != nil {
		t.Fatalf("start: %v", err)
	}

	answers := perfectSheet(service, code)

	// P submits first with a perfect score.
	now = now.Add(10 * time.Second)
	if _, err := service.SubmitAnswers(code, "P", answers); err != nil {
		t.Fatalf("submit P: %v", err)
	}

	ch, cancel, err := service.Subscribe(code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	// H submits later with nothing right.
	now = now.Add(20 * time.Second)
	if _, err := service.SubmitAnswers(code, "H", map[string]any{}); err != nil {
		t.Fatalf("submit H: %v", err)
	}

	lb := waitForEvent(t, ch, domain.EventLeaderboard)
	if lb.TotalQuestions != 3 {
		t.Fatalf("expected total of 3, got %d", lb.TotalQuestions)
	}
	if len(lb.Leaderboard) != 2 || lb.Leaderboard[0].ClientID != "P" {
		t.Fatalf("expected P first, got %+v", lb.Leaderboard)
	}
	if !lb.Leaderboard[0].Finished || lb.Leaderboard[0].ElapsedTime != 10 {
		t.Fatalf("unexpected P entry: %+v", lb.Leaderboard[0])
	}
}

func TestSubmitTwiceInRoomFails(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	if err := service.StartGame(code, "H"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := service.SubmitAnswers(code, "H", map[string]any{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.SubmitAnswers(code, "H", map[string]any{}); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSubmitUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	if _, err := service.SubmitAnswers(code, "ghost", nil); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := service.SubmitAnswers("NOSUCH", "H", nil); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestHostDisconnectPromotesRemainingPlayer(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	ch, cancel, err := service.Subscribe(code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	service.HandleDisconnect("conn-h")

	left := waitForEvent(t, ch, domain.EventPlayerLeft)
	if len(left.Players) != 1 || left.Players[0].ClientID != "P" || !left.Players[0].IsHost {
		t.Fatalf("expected P promoted to host, got %+v", left.Players)
	}

	// Room survives; new host can start.
	if err := service.StartGame(code, "P"); err != nil {
		t.Fatalf("promoted host cannot start: %v", err)
	}
}

func TestLastDisconnectDeletesRoom(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	service.HandleDisconnect("conn-h")

	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", ""); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected deleted room, got %v", err)
	}
}

func TestDisconnectUnknownConnectionIsNoop(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	service.HandleDisconnect("never-seen")
	service.HandleDisconnect("never-seen")

	if _, err := service.JoinRoom(code, "P", "Player", "conn-p", ""); err != nil {
		t.Fatalf("room damaged by unknown disconnect: %v", err)
	}
}

func TestProgressBroadcastsLeaderboard(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	code, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	ch, cancel, err := service.Subscribe(code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	service.UpdateProgress(code, "H", 2)
	lb := waitForEvent(t, ch, domain.EventLeaderboard)
	if len(lb.Leaderboard) != 1 || lb.Leaderboard[0].Progress != 2 {
		t.Fatalf("expected progress 2 in leaderboard, got %+v", lb.Leaderboard)
	}

	// Unknown room and player are silently ignored.
	service.UpdateProgress("NOSUCH", "H", 1)
	service.UpdateProgress(code, "ghost", 1)
}

func TestSweeperRemovesIdleRooms(t *testing.T) {
	ctx := context.Background()
	service := newTestRoomService()

	now := time.Now()
	service.now = func() time.Time { return now }

	idleCode, _, _ := service.CreateRoom(ctx, "H", "Host", "conn-h", "list1")
	now = now.Add(3 * time.Hour)
	activeCode, _, _ := service.CreateRoom(ctx, "H2", "Host2", "conn-h2", "list1")

	service.sweepIdle(2 * time.Hour)

	if _, ok := service.room(idleCode); ok {
		t.Fatalf("idle room survived the sweep")
	}
	if _, ok := service.room(activeCode); !ok {
		t.Fatalf("active room was swept")
	}
}

// perfectSheet builds a 0-based sheet answering every question correctly.
func perfectSheet(service *RoomService, code string) map[string]any {
	room, _ := service.room(code)
	room.mu.Lock()
	defer room.mu.Unlock()
	return AnswersFromInts(answerKey(room.questions))
}

func answerKey(questions []domain.RandomizedQuestion) map[int]int {
	key := make(map[int]int, len(questions))
	for i, q := range questions {
		key[i] = q.CorrectAnswer
	}
	return key
}

func waitForEvent(t *testing.T, ch <-chan domain.RoomEvent, want domain.RoomEventType) domain.RoomEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				t.Fatalf("subscription closed while waiting for %s", want)
			}
			if event.Type == want {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}
