package game

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"wealthsprint/internal/store"
)

func newTestService(t *testing.T, st store.Store, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append([]ServiceOption{WithSeed(7), WithClock(fixedClock)}, opts...)
	return NewService(st, testCatalog(t), nil, opts...)
}

func TestServicePersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newTestService(t, st)

	var recID string
	err := svc.Do(ctx, "alice", func(s *Session) error {
		rec, err := s.Hire(HireInput{RoleID: "dev", Experience: intPtr(5)})
		if err != nil {
			return err
		}
		recID = rec.ID
		if _, err := s.Promote(rec.ID); err != nil {
			return err
		}
		_, err = s.NextScenario()
		return err
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	live, _ := svc.Session(ctx, "alice")
	want := live.Dashboard()

	keys, _ := st.Keys(ctx, "player/alice/")
	if diff := cmp.Diff([]string{"player/alice/attributes", "player/alice/personnel", "player/alice/watcher"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	restarted := newTestService(t, st)
	sess, err := restarted.Session(ctx, "alice")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := sess.Dashboard()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("dashboard mismatch (-want +got):\n%s", diff)
	}
	if got.Staff[0].ID != recID || got.Staff[0].Level != LevelJunior {
		t.Fatalf("unexpected staff after reload %+v", got.Staff)
	}
}

func TestServiceSavesAfterFailedOperation(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newTestService(t, st)

	err := svc.Do(ctx, "bob", func(s *Session) error {
		_, err := s.Hire(HireInput{RoleID: "janitor"})
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.Load(ctx, "player/bob/attributes"); err != nil {
		t.Fatalf("expected save after failed op: %v", err)
	}
}

func TestServiceRejectsBadPlayerID(t *testing.T) {
	svc := newTestService(t, store.NewMemory())
	for _, id := range []string{"", "a/b", "has space", "../x"} {
		if _, err := svc.Session(context.Background(), id); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: expected ErrInvalidInput, got %v", id, err)
		}
	}
}

func TestServicePartialSaveFails(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	st.Save(ctx, "player/carol/attributes", []byte(`{"version":1}`))
	svc := newTestService(t, st)
	if _, err := svc.Session(ctx, "carol"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestServiceAdvanceAll(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newTestService(t, st)
	for _, id := range []string{"p-a", "p-b"} {
		if err := svc.Do(ctx, id, func(*Session) error { return nil }); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	svc.Do(ctx, "p-b", func(s *Session) error {
		_, err := s.Advance(GameLengthYears)
		return err
	})

	ids, err := svc.PlayerIDs(ctx)
	if err != nil {
		t.Fatalf("player ids: %v", err)
	}
	if diff := cmp.Diff([]string{"p-a", "p-b"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	worker := newTestService(t, st)
	n, err := worker.AdvanceAll(ctx, 0.5)
	if err != nil {
		t.Fatalf("advance all: %v", err)
	}
	if n != 1 {
		t.Fatalf("advanced got=%d want=1", n)
	}
	sess, _ := newTestService(t, st).Session(ctx, "p-a")
	if got := sess.Dashboard().ElapsedYears; got != 0.5 {
		t.Fatalf("elapsed got=%v want=0.5", got)
	}
}

func TestServiceEventSink(t *testing.T) {
	ctx := context.Background()
	var events []Event
	svc := newTestService(t, store.NewMemory(), WithEventSink(func(ev Event) { events = append(events, ev) }))
	svc.Do(ctx, "dave", func(s *Session) error {
		_, err := s.Rest()
		return err
	})
	if len(events) != 1 || events[0].Kind != EventAttributes || events[0].PlayerID != "dave" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestServiceSharedStoreSeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	api := newTestService(t, st, WithSharedStore())
	worker := newTestService(t, st, WithSharedStore())

	if err := api.Do(ctx, "erin", func(*Session) error { return nil }); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := worker.AdvanceAll(ctx, 0.25); err != nil {
		t.Fatalf("advance all: %v", err)
	}
	err := api.Do(ctx, "erin", func(s *Session) error {
		_, err := s.Rest()
		return err
	})
	if err != nil {
		t.Fatalf("rest: %v", err)
	}
	sess, _ := api.Session(ctx, "erin")
	if got := sess.Dashboard().ElapsedYears; got != 0.25 {
		t.Fatalf("api lost the worker's advance, elapsed got=%v want=0.25", got)
	}
}

// failingStore rejects any batch that touches a key with the given suffix,
// leaving every key in the batch untouched.
type failingStore struct {
	*store.Memory
	suffix string
}

func (f *failingStore) SaveBatch(ctx context.Context, blobs map[string][]byte) error {
	for k := range blobs {
		if strings.HasSuffix(k, f.suffix) {
			return errors.New("disk full")
		}
	}
	return f.Memory.SaveBatch(ctx, blobs)
}

func TestServiceFailedSaveKeepsStoredGameConsistent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := newTestService(t, mem, WithSharedStore())
	if err := svc.Do(ctx, "frank", func(*Session) error { return nil }); err != nil {
		t.Fatalf("create: %v", err)
	}

	broken := newTestService(t, &failingStore{Memory: mem, suffix: "/personnel"}, WithSharedStore())
	err := broken.Do(ctx, "frank", func(s *Session) error {
		_, err := s.Hire(HireInput{RoleID: "dev"})
		return err
	})
	if err == nil {
		t.Fatalf("expected save failure")
	}

	sess, err := svc.Session(ctx, "frank")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	dash := sess.Dashboard()
	if dash.Financials.BankBalance != StarterBankBalance || len(dash.Staff) != 0 {
		t.Fatalf("stored game half-written: bank=%d staff=%d", dash.Financials.BankBalance, len(dash.Staff))
	}
}

func TestServiceViewWaitsForWriters(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, store.NewMemory(), WithSharedStore())

	entered := make(chan struct{})
	release := make(chan struct{})
	wrote := make(chan error, 1)
	go func() {
		wrote <- svc.Do(ctx, "gina", func(s *Session) error {
			close(entered)
			<-release
			_, err := s.Advance(0.25)
			return err
		})
	}()
	<-entered

	viewed := make(chan float64, 1)
	go func() {
		err := svc.View(ctx, "gina", func(s *Session) error {
			viewed <- s.Dashboard().ElapsedYears
			return nil
		})
		if err != nil {
			t.Errorf("view: %v", err)
		}
	}()
	select {
	case <-viewed:
		t.Fatalf("view ran while a write held the player")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-wrote; err != nil {
		t.Fatalf("do: %v", err)
	}
	if got := <-viewed; got != 0.25 {
		t.Fatalf("view saw elapsed=%v want=0.25", got)
	}

	if err := svc.View(ctx, "a/b", loadNothing); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func loadNothing(*Session) error { return nil }
