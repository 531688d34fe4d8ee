package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"obdmeter/internal/obd"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketKey = "calibration"
	maximaKey = "maxima"
)

// ErrNotFound means nothing has been stored yet.
var ErrNotFound = errors.New("not found")

// Store persists the running maxima between runs.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketKey))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadMaxima returns the stored maxima, or ErrNotFound.
func (s *Store) LoadMaxima() (obd.Maxima, error) {
	var m obd.Maxima
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketKey)).Get([]byte(maximaKey))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &m)
	})
	return m, err
}

// SaveMaxima stores m merged with what is already stored, so a stale writer
// cannot lower the persisted values.
func (s *Store) SaveMaxima(m obd.Maxima) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketKey))
		if data := b.Get([]byte(maximaKey)); data != nil {
			var prev obd.Maxima
			if err := json.Unmarshal(data, &prev); err == nil {
				m = m.Merge(prev)
			}
		}
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return b.Put([]byte(maximaKey), data)
	})
}

// Seed returns the maxima the poller should start from: the calibration
// defaults raised by anything stored.
func (s *Store) Seed(defaults obd.Maxima) (obd.Maxima, error) {
	m, err := s.LoadMaxima()
	if errors.Is(err, ErrNotFound) {
		return defaults, nil
	}
	if err != nil {
		return defaults, err
	}
	return defaults.Merge(m), nil
}

// Recorder writes maxima back whenever a snapshot raises them.
type Recorder struct {
	store *Store
	last  obd.Maxima
}

func NewRecorder(store *Store, seed obd.Maxima) *Recorder {
	return &Recorder{store: store, last: seed}
}

// Observe persists the snapshot's maxima if they exceed the last saved ones.
func (r *Recorder) Observe(s obd.Snapshot) error {
	m := obd.Maxima{Torque: s.MaxTorque, Power: s.MaxPower}
	if m.Torque <= r.last.Torque && m.Power <= r.last.Power {
		return nil
	}
	if err := r.store.SaveMaxima(m); err != nil {
		return err
	}
	r.last = r.last.Merge(m)
	return nil
}
