package game

import "fmt"

// SaveGame is the persisted form of a session, split the way it is stored:
// one blob per component.
type SaveGame struct {
	Attributes AttributesBlob `json:"attributes"`
	Personnel  PersonnelBlob  `json:"personnel"`
	Watcher    WatcherBlob    `json:"watcher"`
}

type AttributesBlob struct {
	Version  int           `json:"version"`
	Snapshot Snapshot      `json:"snapshot"`
	Counters Counters      `json:"counters"`
	Years    float64       `json:"years"`
	Ending   Ending        `json:"ending,omitempty"`
	Journal  []Transaction `json:"journal,omitempty"`
}

type PersonnelBlob struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

type WatcherBlob struct {
	Version int                 `json:"version"`
	Latches map[Condition]Latch `json:"latches,omitempty"`
	Pending *Instance           `json:"pending,omitempty"`
}

func (s *Session) Export() SaveGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending *Instance
	if s.pending != nil {
		p := *s.pending
		pending = &p
	}
	return SaveGame{
		Attributes: AttributesBlob{
			Version:  SaveVersion,
			Snapshot: s.attrs.Snapshot(),
			Counters: s.counters,
			Years:    s.years,
			Ending:   s.ending,
			Journal:  append([]Transaction(nil), s.journal...),
		},
		Personnel: PersonnelBlob{
			Version: SaveVersion,
			Records: s.staff.Records(),
		},
		Watcher: WatcherBlob{
			Version: SaveVersion,
			Latches: s.watcher.Latches(),
			Pending: pending,
		},
	}
}

// Import replaces the session state with save. Nothing changes on error.
func (s *Session) Import(save SaveGame) error {
	for name, v := range map[string]int{
		"attributes": save.Attributes.Version,
		"personnel":  save.Personnel.Version,
		"watcher":    save.Watcher.Version,
	} {
		if v != SaveVersion {
			return fmt.Errorf("%w: %s save version %d", ErrInvalidInput, name, v)
		}
	}
	for _, r := range save.Personnel.Records {
		if !r.Level.Valid() {
			return fmt.Errorf("%w: record %s has invalid level", ErrInvalidInput, r.ID)
		}
	}
	if save.Attributes.Years < 0 {
		return fmt.Errorf("%w: negative elapsed years", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.watcher.restore(save.Watcher.Latches); err != nil {
		return err
	}
	s.attrs.Restore(save.Attributes.Snapshot)
	s.staff.restore(save.Personnel.Records)
	s.counters = save.Attributes.Counters
	s.years = save.Attributes.Years
	s.ending = save.Attributes.Ending
	s.journal = append([]Transaction(nil), save.Attributes.Journal...)
	s.pending = nil
	if save.Watcher.Pending != nil {
		p := *save.Watcher.Pending
		s.pending = &p
	}
	return nil
}
