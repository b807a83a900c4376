// Package duplicate tracks points of a design space that were already
// evaluated or are pending evaluation, so that new proposals never repeat them.
package duplicate

import (
	"crypto/sha1"
	"encoding/binary"
	"math"
	"sync"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

// Rounder snaps model-space points to valid points of a space.
type Rounder interface {
	RoundOptimum(x []float64) []float64
}

// Encoder is a Rounder that can also encode objective-space points.
type Encoder interface {
	Rounder
	ObjectiveToModel(x []float64) ([]float64, error)
}

type key [sha1.Size]byte

// Manager is a set of model-space points. Points are rounded through the space
// before hashing, so two encodings of the same valid point collide.
type Manager struct {
	rounder Rounder

	mu     sync.RWMutex
	points map[key]struct{}
}

// NewModel creates a manager over model-space points. A nil rounder stores
// points exactly as given.
func NewModel(r Rounder, points ...[]float64) *Manager {
	m := &Manager{rounder: r, points: make(map[key]struct{}, len(points))}
	for _, p := range points {
		m.Add(p)
	}
	return m
}

// New creates a manager from objective-space points: the evaluated inputs,
// the inputs still pending evaluation and any inputs to be ignored.
func New(enc Encoder, evaluated, pending, ignored [][]float64) (*Manager, error) {
	m := NewModel(enc)
	for _, set := range [][][]float64{evaluated, pending, ignored} {
		for _, x := range set {
			if err := m.AddObjective(enc, x); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Add records a model-space point.
func (m *Manager) Add(x []float64) {
	k := m.hash(x)
	m.mu.Lock()
	m.points[k] = struct{}{}
	m.mu.Unlock()
}

// AddObjective encodes and records an objective-space point.
func (m *Manager) AddObjective(enc Encoder, x []float64) error {
	model, err := enc.ObjectiveToModel(x)
	if err != nil {
		return optimization.WrapError(err, "encode point").WithComponent("duplicate")
	}
	m.Add(model)
	return nil
}

// IsDuplicate reports whether a model-space point was recorded.
func (m *Manager) IsDuplicate(x []float64) bool {
	k := m.hash(x)
	m.mu.RLock()
	_, ok := m.points[k]
	m.mu.RUnlock()
	return ok
}

// Len returns the number of distinct recorded points.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func (m *Manager) hash(x []float64) key {
	if m.rounder != nil {
		x = m.rounder.RoundOptimum(x)
	}
	return hashPoint(x)
}

func hashPoint(x []float64) key {
	data := make([]byte, len(x)*8)
	for i, v := range x {
		if v == 0 {
			v = 0 // fold -0 onto +0
		}
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return sha1.Sum(data)
}
