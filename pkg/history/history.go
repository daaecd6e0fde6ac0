// Package history keeps the log of dispatched race sessions in an
// embedded badger store, one JSON record per session keyed by uuid.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/gofrs/uuid/v5"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

const sessionPrefix = "session/"

// AthleteResult is one athlete's line in a session record. Finish and
// Actual stay zero until results are recorded.
type AthleteResult struct {
	AthleteID   string  `json:"athleteId"`
	Name        string  `json:"name"`
	Lane        string  `json:"lane"`
	StartOffset float64 `json:"startOffset"`
	Finish      float64 `json:"finish,omitempty"`
	Actual      float64 `json:"actual,omitempty"`
	NewPB       bool    `json:"newPb,omitempty"`
	DQ          bool    `json:"dq,omitempty"`
}

type DistanceGroup struct {
	Distance string          `json:"distance"`
	Results  []AthleteResult `json:"results"`
}

type SessionRecord struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"startedAt"`
	Command   string          `json:"command"`
	Groups    []DistanceGroup `json:"groups"`
}

// NewSessionRecord builds the record for a just-dispatched race.
func NewSessionRecord(entries []model.RaceEntry, command string, startedAt time.Time) (*SessionRecord, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	groups := map[string]*DistanceGroup{}
	var order []string
	for _, e := range entries {
		g, ok := groups[e.Distance]
		if !ok {
			g = &DistanceGroup{Distance: e.Distance}
			groups[e.Distance] = g
			order = append(order, e.Distance)
		}
		g.Results = append(g.Results, AthleteResult{
			AthleteID:   e.AthleteID,
			Name:        e.Name,
			Lane:        e.Lane.String(),
			StartOffset: e.StartOffset,
		})
	}
	rec := &SessionRecord{
		ID:        id.String(),
		StartedAt: startedAt.UTC(),
		Command:   command,
	}
	sort.Strings(order)
	for _, dist := range order {
		rec.Groups = append(rec.Groups, *groups[dist])
	}
	return rec, nil
}

// RecordFinish applies a finish time to one athlete: actual time is
// finish minus the athlete's start offset.
func (rec *SessionRecord) RecordFinish(athleteID string, finish float64) error {
	id := model.NormalizeAthleteID(athleteID)
	for gi := range rec.Groups {
		for ri := range rec.Groups[gi].Results {
			res := &rec.Groups[gi].Results[ri]
			if res.AthleteID != id {
				continue
			}
			if finish < res.StartOffset {
				return fmt.Errorf("finish %.3f before start offset %.3f for %s", finish, res.StartOffset, id)
			}
			res.Finish = finish
			res.Actual = finish - res.StartOffset
			return nil
		}
	}
	return fmt.Errorf("athlete %s not in session %s", id, rec.ID)
}

// Disqualify flags an athlete; a DQ keeps the time but never a PB.
func (rec *SessionRecord) Disqualify(athleteID string) error {
	id := model.NormalizeAthleteID(athleteID)
	for gi := range rec.Groups {
		for ri := range rec.Groups[gi].Results {
			res := &rec.Groups[gi].Results[ri]
			if res.AthleteID == id {
				res.DQ = true
				res.NewPB = false
				return nil
			}
		}
	}
	return fmt.Errorf("athlete %s not in session %s", id, rec.ID)
}

type Store struct {
	db *badger.DB
}

func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func sessionKey(id string) []byte {
	return []byte(sessionPrefix + id)
}

func (s *Store) Put(rec *SessionRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling session %s: %w", rec.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(rec.ID), buf)
	})
}

func (s *Store) Get(id string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("no session %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all sessions, newest first.
func (s *Store) List() ([]*SessionRecord, error) {
	var out []*SessionRecord
	prefix := []byte(sessionPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec SessionRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}
