package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/bridge"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/checkpointer"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/plot"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/tracker"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/trackers"
	ts "github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
)

var log = logrus.WithField("component", "experiment")

// Online is a training session in which an agent learns online from a
// simulator on the other end of a single connection. Every observation
// read from the simulator is answered with exactly one action before
// the next observation is read, and the agent learns after each
// answer.
type Online struct {
	rwc    io.ReadWriteCloser
	conn   *bridge.Conn
	config Config
	state  State

	dims         bridge.Handshake
	agent        agent.Agent
	returns      *trackers.Return
	checkpointer checkpointer.Checkpointer
	episodes     int
}

// NewOnline creates and returns a new online session over an accepted
// connection. The session owns rwc and closes it when Run returns.
func NewOnline(rwc io.ReadWriteCloser, c Config) (*Online, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newOnline: %w", err)
	}

	return &Online{
		rwc:     rwc,
		conn:    bridge.NewConn(rwc),
		config:  c,
		state:   AwaitConnection,
		returns: trackers.NewReturn(c.RewardLog),
	}, nil
}

// State returns the stage the session is in
func (o *Online) State() State {
	return o.state
}

// Dims returns the dimensions the agent was created with
func (o *Online) Dims() bridge.Handshake {
	return o.dims
}

// Returns returns the returns of all episodes completed in the session
func (o *Online) Returns() []float64 {
	return o.returns.Returns()
}

// Run runs the session until an episode ends, or until the connection
// fails if episodes are continued. Cancelling ctx closes the
// connection, which ends the session without saving anything.
func (o *Online) Run(ctx context.Context) error {
	if o.state != AwaitConnection {
		return fmt.Errorf("run: session has already been run")
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			o.rwc.Close()
		case <-finished:
		}
	}()

	err := o.run()
	o.rwc.Close()

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (o *Online) run() error {
	o.state = Handshake
	dims, ack, err := o.handshake()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	o.dims = dims

	a, err := o.config.Agent.CreateAgent(dims.NumStates, dims.NumActions)
	if err != nil {
		return fmt.Errorf("run: could not create agent: %w", err)
	}
	defer a.Close()
	o.agent = a
	o.checkpointer = checkpointer.NewEpisodeEnd(o.config.Store, a)

	if err := o.restore(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if ack {
		err := o.conn.SendHandshakeAck(bridge.NewHandshakeAck(dims))
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	o.state = Step
	log.WithFields(logrus.Fields{
		"states":  dims.NumStates,
		"actions": dims.NumActions,
	}).Info("session started")

	for {
		err := o.runEpisode()
		if errors.Is(err, errClosedBetweenEpisodes) && o.episodes > 0 {
			o.state = EpisodeEnd
			log.WithField("episodes", o.episodes).Info("simulator " +
				"disconnected between episodes")
			return nil
		} else if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		if !o.config.ContinueEpisodes {
			o.state = EpisodeEnd
			return nil
		}
	}
}

// handshake reads the simulator's handshake and returns the dimensions
// to use along with whether the handshake should be acknowledged. A
// malformed handshake is replaced by the fallback dimensions and is
// not acknowledged.
func (o *Online) handshake() (bridge.Handshake, bool, error) {
	h, err := o.conn.ReadHandshake()

	var malformed *bridge.MalformedMessageError
	if errors.As(err, &malformed) {
		log.WithError(err).WithFields(logrus.Fields{
			"states":  o.config.Fallback.NumStates,
			"actions": o.config.Fallback.NumActions,
		}).Warn("malformed handshake, using fallback dimensions")
		return o.config.Fallback, false, nil
	} else if err != nil {
		return bridge.Handshake{}, false, err
	}

	log.WithFields(logrus.Fields{
		"states":  h.NumStates,
		"actions": h.NumActions,
	}).Info("handshake received")
	return h, true, nil
}

// restore loads the last checkpoint into the agent. A missing or
// incompatible checkpoint leaves the agent freshly initialized, but a
// checkpoint that cannot be read is an error so that it is never
// overwritten.
func (o *Online) restore() error {
	record, err := o.config.Store.Load()
	if errors.Is(err, checkpointer.ErrNotFound) {
		log.Info("no checkpoint found, starting fresh")
		return nil
	} else if err != nil {
		return fmt.Errorf("restore: could not load checkpoint: %w", err)
	}

	if err := o.agent.Restore(record); err != nil {
		log.WithError(err).Warn("could not restore checkpoint, starting " +
			"fresh")
		return nil
	}

	log.WithField("counter", record.Counter).Info("checkpoint restored")
	return nil
}

// errClosedBetweenEpisodes is returned by runEpisode when the connection
// closes before the first observation of an episode
var errClosedBetweenEpisodes = errors.New("connection closed between " +
	"episodes")

// runEpisode answers observations until one ends the episode, then
// saves the agent and the episode's return
func (o *Online) runEpisode() error {
	var prev ts.TimeStep
	var prevAction int

	for number := 0; ; number++ {
		obs, err := o.conn.ReadObservation(o.dims.NumStates)
		if number == 0 && errors.Is(err, bridge.ErrConnectionClosed) {
			return fmt.Errorf("runEpisode: %w: %w", errClosedBetweenEpisodes,
				err)
		} else if err != nil {
			return fmt.Errorf("runEpisode: %w", err)
		}

		stepType := ts.Mid
		if number == 0 {
			stepType = ts.First
		}
		if obs.Done {
			stepType = ts.Last
		}
		step := ts.New(stepType, obs.Reward, obs.State, number)

		if number > 0 {
			t, err := ts.NewTransition(prev, prevAction, step)
			if err != nil {
				return fmt.Errorf("runEpisode: %w", err)
			}
			if err := o.agent.Remember(t); err != nil {
				return fmt.Errorf("runEpisode: %w", err)
			}
		}
		o.returns.Track(step)

		action, err := o.agent.SelectAction(obs.State, false)
		if err != nil {
			return fmt.Errorf("runEpisode: %w", err)
		}
		if err := o.conn.SendAction(action); err != nil {
			return fmt.Errorf("runEpisode: %w", err)
		}

		if err := o.agent.Step(); err != nil {
			return fmt.Errorf("runEpisode: %w", err)
		}

		log.WithFields(logrus.Fields{
			"step":    number,
			"action":  action,
			"reward":  obs.Reward,
			"epsilon": o.agent.Epsilon(),
		}).Debug("step")

		if step.Last() {
			return o.endEpisode(step)
		}
		prev, prevAction = step, action
	}
}

// endEpisode saves the agent and the return of the episode ending at
// step, then redraws the reward curve
func (o *Online) endEpisode(step ts.TimeStep) error {
	if err := o.checkpointer.Checkpoint(step); err != nil {
		return fmt.Errorf("endEpisode: %w", err)
	}

	if err := o.returns.Save(); err != nil {
		return fmt.Errorf("endEpisode: %w", err)
	}
	o.episodes++

	returns := o.returns.Returns()
	log.WithFields(logrus.Fields{
		"episode": o.episodes,
		"steps":   step.Number,
		"return":  returns[len(returns)-1],
		"epsilon": o.agent.Epsilon(),
	}).Info("episode finished")

	if o.config.PlotPath == "" {
		return nil
	}

	// Plotting failures are not fatal
	history, err := tracker.LoadData(o.config.RewardLog)
	if err != nil {
		log.WithError(err).Warn("could not load reward log")
		return nil
	}
	if err := plot.Render(o.config.PlotPath, history); err != nil {
		log.WithError(err).Warn("could not render reward plot")
	}
	return nil
}
