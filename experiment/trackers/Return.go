// Package trackers implements the Trackers used during a training
// session
package trackers

import (
	"fmt"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/tracker"
	ts "github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
)

// Return tracks and saves the episodic return in a session. When the
// session receives a TimeStep, this Tracker will extract the reward and
// accumulate the return for each episode.
//
// The reward of the first TimeStep in an episode is not part of the
// return, since no action led to it.
//
// Note: An episode must finish for this Tracker to save its data.
// If the last episode in a session does not finish, that episode's
// return will not be saved.
type Return struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	saved          int // Number of episodeReturns already saved
	filename       string
}

// NewReturn creates and returns a new *Return Tracker which appends
// completed episodic returns to the reward log at filename
func NewReturn(filename string) *Return {
	var saver Return
	saver.lastTimeStep = -1
	saver.filename = filename
	return &saver
}

// Track tracks the rewards seen on a timestep. By calling this method
// on every timestep, the Tracker will accumulate all rewards seen in
// the episode, and save the cumulative reward for that episode as the
// episodic return once the last timestep is tracked.
//
// Track panics if it is called for non-sequential timesteps
func (r *Return) Track(step ts.TimeStep) {
	// Ensure that Track is called on sequential timesteps
	if r.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			r.lastTimeStep, step.Number)
		panic(msg)
	}

	if step.Number > 0 {
		r.currentReturn += step.Reward
	}

	if !step.Last() {
		r.lastTimeStep = step.Number
		return
	}

	// Episode has ended, save the return and begin tracking the
	// return for a new episode
	r.episodeReturns = append(r.episodeReturns, r.currentReturn)
	r.currentReturn = 0.0
	r.lastTimeStep = -1
}

// Current returns the return accumulated so far in the current episode
func (r *Return) Current() float64 {
	return r.currentReturn
}

// Returns returns the returns of all completed episodes
func (r *Return) Returns() []float64 {
	return append([]float64(nil), r.episodeReturns...)
}

// Save appends the returns of episodes completed since the last call
// to Save to the reward log
func (r *Return) Save() error {
	if r.saved == len(r.episodeReturns) {
		return nil
	}

	if err := tracker.AppendData(r.filename,
		r.episodeReturns[r.saved:]...); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	r.saved = len(r.episodeReturns)
	return nil
}

var _ tracker.Tracker = &Return{}
