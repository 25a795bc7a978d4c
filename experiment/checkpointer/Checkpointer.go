// Package checkpointer implements persistence of agent parameters so
// that training can resume across sessions.
package checkpointer

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/solver"
	ts "github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
)

var log = logrus.WithField("component", "checkpointer")

// ErrNotFound is returned by a Store when no checkpoint has been saved
var ErrNotFound = errors.New("checkpoint not found")

// Record is a checkpoint of a DQN agent. Parameter sets are stored one
// slice per learnable node.
type Record struct {
	Features int
	Actions  int

	Online  [][]float64
	Target  [][]float64
	Solver  solver.State
	Counter int
}

// Compatible returns an error if the record was saved by an agent with
// different dimensions
func (r Record) Compatible(features, actions int) error {
	if r.Features != features || r.Actions != actions {
		return fmt.Errorf("compatible: checkpoint has %v features and %v "+
			"actions\n\twant(%v features, %v actions)", r.Features,
			r.Actions, features, actions)
	}
	return nil
}

// Store saves and loads a single Record
type Store interface {
	// Load returns the last saved Record or ErrNotFound if none exists
	Load() (Record, error)
	Save(Record) error
	Close() error
}

// Snapshotter is an object whose state can be saved as a Record
type Snapshotter interface {
	Snapshot() Record
}

// Checkpointer checkpoints objects based on timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}

// episodeEnd implements checkpointing at the end of each episode
type episodeEnd struct {
	store  Store
	object Snapshotter
}

// NewEpisodeEnd returns a checkpointer that saves object to store each
// time it is given the last timestep of an episode
func NewEpisodeEnd(store Store, object Snapshotter) Checkpointer {
	return &episodeEnd{store: store, object: object}
}

// Checkpoint saves the tracked object if t is the last timestep in an
// episode
func (e *episodeEnd) Checkpoint(t ts.TimeStep) error {
	if !t.Last() {
		return nil
	}

	record := e.object.Snapshot()
	if err := e.store.Save(record); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	log.WithFields(logrus.Fields{
		"step":    t.Number,
		"counter": record.Counter,
	}).Info("checkpoint saved")
	return nil
}

func encode(r Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode: could not encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (Record, error) {
	var r Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return Record{}, fmt.Errorf("decode: could not decode record: %w", err)
	}
	return r, nil
}
