package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"wealthsprint/internal/store"
)

var playerIDRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

const playerKeyPrefix = "player/"

func ValidatePlayerID(id string) error {
	if !playerIDRE.MatchString(id) {
		return fmt.Errorf("%w: player id must be 1-64 letters, digits, '-' or '_'", ErrInvalidInput)
	}
	return nil
}

type ServiceOption func(*Service)

func WithWeighting(w Weighting) ServiceOption {
	return func(s *Service) { s.weighting = w }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithSeed(seed int64) ServiceOption {
	return func(s *Service) { s.rand = mathrand.New(mathrand.NewSource(seed)) }
}

// WithSharedStore is for stores other processes also write, such as the API
// and the worker sharing one database. Sessions are then loaded fresh for
// every call instead of living in memory.
func WithSharedStore() ServiceOption {
	return func(s *Service) { s.shared = true }
}

// WithEventSink forwards every session event to fn.
func WithEventSink(fn func(Event)) ServiceOption {
	return func(s *Service) { s.sink = fn }
}

// Service owns the live sessions and persists them after every mutation.
type Service struct {
	store   store.Store
	catalog *Catalog
	log     *slog.Logger

	weighting Weighting
	now       func() time.Time
	sink      func(Event)
	shared    bool

	mu       sync.Mutex
	rand     *mathrand.Rand
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewService(st store.Store, catalog *Catalog, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:     st,
		catalog:   catalog,
		log:       logger,
		weighting: RarityWeighting,
		now:       time.Now,
		rand:      mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		sessions:  make(map[string]*Session),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Catalog() *Catalog { return s.catalog }

// Session returns the live session for playerID, loading it from the store or
// starting a fresh game when nothing is saved.
func (s *Service) Session(ctx context.Context, playerID string) (*Session, error) {
	if err := ValidatePlayerID(playerID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if sess, ok := s.sessions[playerID]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	seed := s.rand.Int63()
	s.mu.Unlock()

	sess := NewSession(playerID, s.catalog, SessionOptions{
		Weighting: s.weighting,
		Rand:      mathrand.New(mathrand.NewSource(seed)),
		Now:       s.now,
		Logger:    s.log,
	})
	save, found, err := s.load(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if found {
		if err := sess.Import(save); err != nil {
			return nil, fmt.Errorf("restore %s: %w", playerID, err)
		}
	} else {
		s.log.Info("new game", "player_id", playerID)
	}
	if s.sink != nil {
		sess.Subscribe(s.sink)
	}
	if s.shared {
		return sess, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent first load may have won the race.
	if existing, ok := s.sessions[playerID]; ok {
		return existing, nil
	}
	s.sessions[playerID] = sess
	return sess, nil
}

// Do runs fn against the player's session and saves afterwards. The session is
// saved even when fn fails, since some failures still change state.
func (s *Service) Do(ctx context.Context, playerID string, fn func(*Session) error) error {
	if err := ValidatePlayerID(playerID); err != nil {
		return err
	}
	lock := s.playerLock(playerID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.Session(ctx, playerID)
	if err != nil {
		return err
	}
	opErr := fn(sess)
	if err := s.Save(ctx, sess); err != nil {
		return errors.Join(opErr, err)
	}
	return opErr
}

// View runs fn against the player's session under the same lock as Do,
// without saving.
func (s *Service) View(ctx context.Context, playerID string, fn func(*Session) error) error {
	if err := ValidatePlayerID(playerID); err != nil {
		return err
	}
	lock := s.playerLock(playerID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.Session(ctx, playerID)
	if err != nil {
		return err
	}
	return fn(sess)
}

// playerLock serializes load, mutate and save for one player.
func (s *Service) playerLock(playerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[playerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[playerID] = l
	}
	return l
}

// Save writes every part of the session in one batch.
func (s *Service) Save(ctx context.Context, sess *Session) error {
	save := sess.Export()
	parts := map[string]any{
		"attributes": save.Attributes,
		"personnel":  save.Personnel,
		"watcher":    save.Watcher,
	}
	blobs := make(map[string][]byte, len(parts))
	for part, v := range parts {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", part, err)
		}
		blobs[playerKey(sess.PlayerID(), part)] = raw
	}
	return s.store.SaveBatch(ctx, blobs)
}

// AdvanceAll advances every saved, unfinished game by years.
func (s *Service) AdvanceAll(ctx context.Context, years float64) (int, error) {
	ids, err := s.PlayerIDs(ctx)
	if err != nil {
		return 0, err
	}
	advanced := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return advanced, err
		}
		err := s.Do(ctx, id, func(sess *Session) error {
			_, err := sess.Advance(years)
			return err
		})
		switch {
		case err == nil:
			advanced++
		case errors.Is(err, ErrGameEnded):
		default:
			s.log.Error("advance failed", "player_id", id, "error", err)
		}
	}
	return advanced, nil
}

// PlayerIDs lists players with a saved game.
func (s *Service) PlayerIDs(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx, playerKeyPrefix)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, k := range keys {
		rest := strings.TrimPrefix(k, playerKeyPrefix)
		id, part, ok := strings.Cut(rest, "/")
		if ok && part == "attributes" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Service) load(ctx context.Context, playerID string) (SaveGame, bool, error) {
	var save SaveGame
	parts := []struct {
		name string
		dst  any
	}{
		{"attributes", &save.Attributes},
		{"personnel", &save.Personnel},
		{"watcher", &save.Watcher},
	}
	found := 0
	for _, p := range parts {
		raw, err := s.store.Load(ctx, playerKey(playerID, p.name))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return SaveGame{}, false, err
		}
		if err := json.Unmarshal(raw, p.dst); err != nil {
			return SaveGame{}, false, fmt.Errorf("decode %s for %s: %w", p.name, playerID, err)
		}
		found++
	}
	switch found {
	case 0:
		return SaveGame{}, false, nil
	case len(parts):
		return save, true, nil
	default:
		return SaveGame{}, false, fmt.Errorf("%w: partial save for %s", ErrInvalidInput, playerID)
	}
}

func playerKey(playerID, part string) string {
	return playerKeyPrefix + playerID + "/" + part
}
