package app

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"quizhall/internal/domain"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const roomCodeLength = 6

// RoomService owns the multiplayer room registry. The registry map is
// guarded by its own lock; every room carries its own mutex so that
// unrelated rooms never serialize against each other. Lock order is always
// registry first, then room.
type RoomService struct {
	bank  *BankService
	seeds *seedSource
	now   func() time.Time

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomService(bank *BankService) *RoomService {
	return &RoomService{
		bank:  bank,
		seeds: newSeedSource(),
		now:   time.Now,
		rooms: make(map[string]*Room),
	}
}

// Room is one multiplayer game. Its question sequence is fixed at creation
// and identical for every player; no per-player re-derivation happens.
type Room struct {
	code      string
	listKey   string
	seed      int64
	questions []domain.RandomizedQuestion
	now       func() time.Time

	mu          sync.Mutex
	hostID      string
	started     bool
	startTime   time.Time
	lastTouched time.Time
	players     map[string]*roomPlayer
	subscribers map[chan domain.RoomEvent]struct{}
}

type roomPlayer struct {
	clientID    string
	displayName string
	connID      string
	score       int
	elapsed     float64
	progress    int
	finished    bool
	submitted   bool
}

// CreateRoom opens a room with a unique code, a fresh seed, and the fixed
// server-authoritative question sequence, registering the host as the first
// player.
func (s *RoomService) CreateRoom(ctx context.Context, hostID, displayName, connID, listKey string) (string, []domain.PlayerView, error) {
	if listKey == "" {
		listKey = domain.ListAllQuestions
	}
	seed := s.seeds.Next()
	questions, err := s.bank.DeriveQuiz(ctx, listKey, seed, true, true)
	if err != nil {
		return "", nil, err
	}

	room := &Room{
		listKey:     listKey,
		seed:        seed,
		questions:   questions,
		now:         s.now,
		hostID:      hostID,
		lastTouched: s.now(),
		players:     make(map[string]*roomPlayer),
		subscribers: make(map[chan domain.RoomEvent]struct{}),
	}
	room.players[hostID] = &roomPlayer{
		clientID:    hostID,
		displayName: displayName,
		connID:      connID,
	}

	s.mu.Lock()
	code := s.newCodeLocked()
	room.code = code
	s.rooms[code] = room
	s.mu.Unlock()

	room.mu.Lock()
	players := room.playersLocked()
	room.mu.Unlock()
	return code, players, nil
}

// JoinRoom adds or refreshes a player and broadcasts the updated player set.
// A rejoining clientID keeps its score and progress.
func (s *RoomService) JoinRoom(code, clientID, displayName, connID, requestedListKey string) ([]domain.PlayerView, error) {
	room, ok := s.room(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.started {
		return nil, domain.ErrAlreadyStarted
	}
	if isSyntheticList(requestedListKey) && requestedListKey != room.listKey {
		return nil, domain.ErrListMismatch
	}

	if player, ok := room.players[clientID]; ok {
		player.displayName = displayName
		player.connID = connID
	} else {
		room.players[clientID] = &roomPlayer{
			clientID:    clientID,
			displayName: displayName,
			connID:      connID,
		}
	}
	room.touchLocked()

	players := room.playersLocked()
	room.broadcastLocked(domain.RoomEvent{
		Type:    domain.EventPlayerJoined,
		Code:    room.code,
		Players: players,
	})
	return players, nil
}

// StartGame transitions the room to in-progress and broadcasts the fixed
// question sequence and start time to every member. This is the single
// moment all players receive the quiz.
func (s *RoomService) StartGame(code, clientID string) error {
	room, ok := s.room(code)
	if !ok {
		return domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if clientID != room.hostID {
		return domain.ErrUnauthorized
	}
	room.started = true
	room.startTime = s.now()
	room.touchLocked()

	room.broadcastLocked(domain.RoomEvent{
		Type:           domain.EventGameStarted,
		Code:           room.code,
		Questions:      domain.ViewOf(room.questions),
		TotalQuestions: len(room.questions),
		StartTime:      room.startTime,
	})
	return nil
}

// UpdateProgress records how far a player has advanced and rebroadcasts the
// leaderboard. Unknown rooms or players are silently ignored; progress is a
// high-frequency signal with no acknowledgment.
func (s *RoomService) UpdateProgress(code, clientID string, currentIndex int) {
	room, ok := s.room(code)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player, ok := room.players[clientID]
	if !ok {
		return
	}
	if currentIndex < 0 {
		currentIndex = 0
	}
	if currentIndex > len(room.questions) {
		currentIndex = len(room.questions)
	}
	player.progress = currentIndex
	room.touchLocked()
	room.broadcastLeaderboardLocked()
}

// SubmitAnswers scores a player's sheet against the room's fixed sequence,
// records elapsed time from the shared start, and rebroadcasts the
// leaderboard. Each player submits at most once.
func (s *RoomService) SubmitAnswers(code, clientID string, answers map[string]any) (domain.ScoreResult, error) {
	room, ok := s.room(code)
	if !ok {
		return domain.ScoreResult{}, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player, ok := room.players[clientID]
	if !ok {
		return domain.ScoreResult{}, domain.ErrPlayerNotFound
	}
	if player.submitted {
		return domain.ScoreResult{}, domain.ErrAlreadySubmitted
	}

	result := Score(room.questions, answers)
	player.score = result.Correct
	player.elapsed = s.now().Sub(room.startTime).Seconds()
	player.progress = len(room.questions)
	player.finished = true
	player.submitted = true
	room.touchLocked()

	room.broadcastLeaderboardLocked()
	return result, nil
}

// HandleDisconnect removes whichever player holds the connection, migrating
// the host or deleting the room as needed. Safe to call for connections that
// belong to no room, and idempotent under racing disconnects.
func (s *RoomService) HandleDisconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, room := range s.rooms {
		room.mu.Lock()
		removed := false
		for clientID, player := range room.players {
			if player.connID == connID {
				delete(room.players, clientID)
				removed = true
				if clientID == room.hostID {
					room.hostID = ""
					for remaining := range room.players {
						room.hostID = remaining
						break
					}
				}
				break
			}
		}
		if !removed {
			room.mu.Unlock()
			continue
		}
		if len(room.players) == 0 {
			room.closeLocked()
			room.mu.Unlock()
			delete(s.rooms, code)
			return
		}
		room.touchLocked()
		room.broadcastLocked(domain.RoomEvent{
			Type:    domain.EventPlayerLeft,
			Code:    room.code,
			Players: room.playersLocked(),
		})
		room.mu.Unlock()
		return
	}
}

// Subscribe returns a channel of broadcasts for a room. The caller must
// invoke the cancel function to avoid leaks.
func (s *RoomService) Subscribe(code string) (<-chan domain.RoomEvent, func(), error) {
	room, ok := s.room(code)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}

	ch := make(chan domain.RoomEvent, 8)
	room.mu.Lock()
	room.subscribers[ch] = struct{}{}
	room.mu.Unlock()

	cancel := func() {
		room.mu.Lock()
		if _, ok := room.subscribers[ch]; ok {
			delete(room.subscribers, ch)
			close(ch)
		}
		room.mu.Unlock()
	}
	return ch, cancel, nil
}

// StartSweeper reaps rooms idle longer than idleTTL. Disconnect cleanup
// already empties most rooms; the sweep catches rooms abandoned with
// connections left open. Runs until ctx is done.
func (s *RoomService) StartSweeper(ctx context.Context, interval, idleTTL time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepIdle(idleTTL)
			}
		}
	}()
}

func (s *RoomService) sweepIdle(idleTTL time.Duration) {
	cutoff := s.now().Add(-idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for code, room := range s.rooms {
		room.mu.Lock()
		idle := room.lastTouched.Before(cutoff)
		if idle {
			room.closeLocked()
		}
		room.mu.Unlock()
		if idle {
			delete(s.rooms, code)
			log.Printf("swept idle room %s", code)
		}
	}
}

func (s *RoomService) room(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

// newCodeLocked draws codes until one is free among current rooms.
func (s *RoomService) newCodeLocked() string {
	for {
		buf := make([]byte, roomCodeLength)
		for i := range buf {
			buf[i] = roomCodeAlphabet[s.seeds.Intn(len(roomCodeAlphabet))]
		}
		code := string(buf)
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}

func isSyntheticList(listKey string) bool {
	return listKey == domain.ListAllQuestions || listKey == domain.ListRandom120
}

func (r *Room) touchLocked() {
	r.lastTouched = r.now()
}

// playersLocked snapshots the player set in a stable order.
func (r *Room) playersLocked() []domain.PlayerView {
	views := make([]domain.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, domain.PlayerView{
			ClientID:    p.clientID,
			DisplayName: p.displayName,
			Score:       p.score,
			ElapsedTime: p.elapsed,
			Progress:    p.progress,
			Finished:    p.finished,
			IsHost:      p.clientID == r.hostID,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].ClientID < views[j].ClientID
	})
	return views
}

// leaderboardLocked recomputes the full ranking from scratch on every event.
func (r *Room) leaderboardLocked() []domain.PlayerView {
	entries := r.playersLocked()
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		// Faster finish wins ties; players still racing rank below anyone
		// with the same score who already finished.
		if entries[i].Finished != entries[j].Finished {
			return entries[i].Finished
		}
		if entries[i].Finished && entries[i].ElapsedTime != entries[j].ElapsedTime {
			return entries[i].ElapsedTime < entries[j].ElapsedTime
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	return entries
}

func (r *Room) broadcastLeaderboardLocked() {
	r.broadcastLocked(domain.RoomEvent{
		Type:           domain.EventLeaderboard,
		Code:           r.code,
		Leaderboard:    r.leaderboardLocked(),
		TotalQuestions: len(r.questions),
	})
}

// broadcastLocked fans an event out to all subscribers without blocking:
// a slow subscriber loses its oldest pending event, not the room's progress.
func (r *Room) broadcastLocked(event domain.RoomEvent) {
	for ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// closeLocked drops every subscriber when the room is deleted.
func (r *Room) closeLocked() {
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}
