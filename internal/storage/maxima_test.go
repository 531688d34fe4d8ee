package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"obdmeter/internal/obd"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedDefaultsWhenEmpty(t *testing.T) {
	s := openStore(t)
	if _, err := s.LoadMaxima(); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadMaxima on empty store = %v", err)
	}
	m, err := s.Seed(obd.DefaultMaxima())
	if err != nil {
		t.Fatal(err)
	}
	if m != obd.DefaultMaxima() {
		t.Errorf("Seed = %+v", m)
	}
}

func TestSaveNeverLowers(t *testing.T) {
	s := openStore(t)
	if err := s.SaveMaxima(obd.Maxima{Torque: 420, Power: 300}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMaxima(obd.Maxima{Torque: 400, Power: 350}); err != nil {
		t.Fatal(err)
	}
	m, err := s.LoadMaxima()
	if err != nil {
		t.Fatal(err)
	}
	if m != (obd.Maxima{Torque: 420, Power: 350}) {
		t.Errorf("stored = %+v", m)
	}

	seed, err := s.Seed(obd.DefaultMaxima())
	if err != nil {
		t.Fatal(err)
	}
	if seed != (obd.Maxima{Torque: 420, Power: 350}) {
		t.Errorf("Seed = %+v", seed)
	}
}

func TestRecorderWritesOnIncrease(t *testing.T) {
	s := openStore(t)
	r := NewRecorder(s, obd.DefaultMaxima())

	if err := r.Observe(obd.Snapshot{MaxTorque: 380, MaxPower: 310}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadMaxima(); !errors.Is(err, ErrNotFound) {
		t.Errorf("unchanged maxima were written: %v", err)
	}

	if err := r.Observe(obd.Snapshot{MaxTorque: 500, MaxPower: 310}); err != nil {
		t.Fatal(err)
	}
	m, err := s.LoadMaxima()
	if err != nil {
		t.Fatal(err)
	}
	if m.Torque != 500 {
		t.Errorf("stored torque = %v, want 500", m.Torque)
	}
}
