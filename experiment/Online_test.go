package experiment

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent/nonlinear/discrete/deepq"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/agent/nonlinear/discrete/policy"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/bridge"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/checkpointer"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/experiment/tracker"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/initwfn"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/network"
	"github.com/gkotti4/UE5-ReinforcementLearning-AI/solver"
	ts "github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
)

// recorder is an agent which records everything the session asks of
// it. Actions cycle through the action space.
type recorder struct {
	mu sync.Mutex

	features, actions int
	remembered        []ts.Transition
	selected          int
	steps             int
	restored          *checkpointer.Record
	closed            bool
}

func (r *recorder) Step() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps++
	return nil
}

func (r *recorder) Remember(t ts.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remembered = append(r.remembered, t)
	return nil
}

func (r *recorder) SelectAction(obs []float64, eval bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	action := r.selected % r.actions
	r.selected++
	return action, nil
}

func (r *recorder) Epsilon() float64 {
	return 0
}

func (r *recorder) Snapshot() checkpointer.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return checkpointer.Record{
		Features: r.features,
		Actions:  r.actions,
		Counter:  r.steps,
	}
}

func (r *recorder) Restore(record checkpointer.Record) error {
	if err := record.Compatible(r.features, r.actions); err != nil {
		return err
	}
	r.restored = &record
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) transitions() []ts.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ts.Transition(nil), r.remembered...)
}

// recorderConfig creates a single recorder
type recorderConfig struct {
	agent *recorder
}

func (c *recorderConfig) CreateAgent(features, actions int) (agent.Agent,
	error) {
	c.agent = &recorder{features: features, actions: actions}
	return c.agent, nil
}

type fixture struct {
	config   Config
	recorder *recorderConfig
	store    checkpointer.Store
	dir      string
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	store, err := checkpointer.Open(checkpointer.File,
		filepath.Join(dir, "dqn_model.gob"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	agentConfig := &recorderConfig{}
	return &fixture{
		config: Config{
			Agent:     agentConfig,
			Store:     store,
			RewardLog: filepath.Join(dir, "reward_log.txt"),
			PlotPath:  filepath.Join(dir, "episode_rewards.png"),
			Fallback:  bridge.Handshake{NumStates: 2, NumActions: 2},
		},
		recorder: agentConfig,
		store:    store,
		dir:      dir,
	}
}

// start runs a session in the background and returns the simulator
// side of its connection along with the result of Run
func start(t *testing.T, ctx context.Context, c Config) (*Online,
	net.Conn, <-chan error) {
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })

	session, err := NewOnline(server, c)
	require.NoError(t, err)
	assert.Equal(t, AwaitConnection, session.State())

	result := make(chan error, 1)
	go func() { result <- session.Run(ctx) }()
	return session, client, result
}

func TestOnlineEpisode(t *testing.T) {
	f := newFixture(t)
	session, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	ack, err := client.Handshake(bridge.Handshake{NumStates: 4,
		NumActions: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, ack.ReceivedStates)
	assert.Equal(t, 3, ack.ReceivedActions)
	assert.NotEmpty(t, ack.Pong)

	first := []float64{1, 2, 3, 4}
	a0, err := client.Step(bridge.Observation{State: first, Reward: 9})
	require.NoError(t, err)
	assert.Empty(t, f.recorder.agent.transitions())

	second := []float64{5, 6, 7, 8}
	a1, err := client.Step(bridge.Observation{State: second, Reward: 1.5})
	require.NoError(t, err)

	remembered := f.recorder.agent.transitions()
	require.Len(t, remembered, 1)
	assert.Equal(t, first, remembered[0].State.RawVector().Data)
	assert.Equal(t, a0, remembered[0].Action)
	assert.Equal(t, 1.5, remembered[0].Reward)
	assert.Equal(t, second, remembered[0].NextState.RawVector().Data)
	assert.False(t, remembered[0].Done)

	last := []float64{0, 0, 0, 1}
	_, err = client.Step(bridge.Observation{State: last, Reward: 2,
		Done: true})
	require.NoError(t, err)

	require.NoError(t, <-result)
	assert.Equal(t, EpisodeEnd, session.State())

	// No further responses once the episode has ended
	_, err = bridge.ReadFrame(conn)
	assert.ErrorIs(t, err, bridge.ErrConnectionClosed)

	remembered = f.recorder.agent.transitions()
	require.Len(t, remembered, 2)
	assert.Equal(t, a1, remembered[1].Action)
	assert.True(t, remembered[1].Done)
	assert.True(t, f.recorder.agent.closed)

	record, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, record.Features)
	assert.Equal(t, 3, record.Counter)

	rewards, err := tracker.LoadData(f.config.RewardLog)
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5}, rewards)
	assert.Equal(t, []float64{3.5}, session.Returns())

	_, err = os.Stat(f.config.PlotPath)
	assert.NoError(t, err)
}

func TestOnlineActionsCycle(t *testing.T) {
	f := newFixture(t)
	_, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 1, NumActions: 2})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		action, err := client.Step(bridge.Observation{State: []float64{0},
			Done: i == 3})
		require.NoError(t, err)
		assert.Equal(t, i%2, action)
	}
	require.NoError(t, <-result)
}

func TestOnlineMalformedHandshake(t *testing.T) {
	f := newFixture(t)
	session, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	require.NoError(t, client.SendRaw(map[string]string{"NumStates": "x"}))

	// No acknowledgement is sent, the session carries on with the
	// fallback dimensions
	_, err := client.Step(bridge.Observation{State: []float64{1, 2}})
	require.NoError(t, err)
	_, err = client.Step(bridge.Observation{State: []float64{2, 3},
		Reward: 1, Done: true})
	require.NoError(t, err)

	require.NoError(t, <-result)
	assert.Equal(t, f.config.Fallback, session.Dims())
	assert.Equal(t, 2, f.recorder.agent.features)
	assert.Equal(t, 2, f.recorder.agent.actions)
}

func TestOnlineStateLengthMismatch(t *testing.T) {
	f := newFixture(t)
	_, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 3, NumActions: 2})
	require.NoError(t, err)

	require.NoError(t, client.SendRaw(bridge.Observation{
		State: []float64{1, 2}}))

	err = <-result
	var malformed *bridge.MalformedMessageError
	assert.ErrorAs(t, err, &malformed)

	_, err = f.store.Load()
	assert.ErrorIs(t, err, checkpointer.ErrNotFound)
}

func TestOnlineContinueEpisodes(t *testing.T) {
	f := newFixture(t)
	f.config.ContinueEpisodes = true
	session, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 1, NumActions: 2})
	require.NoError(t, err)

	for episode := 1; episode <= 2; episode++ {
		_, err := client.Step(bridge.Observation{State: []float64{0}})
		require.NoError(t, err)
		_, err = client.Step(bridge.Observation{State: []float64{1},
			Reward: float64(episode), Done: true})
		require.NoError(t, err)
	}
	conn.Close()

	// Closing between episodes after some were saved ends the session
	require.NoError(t, <-result)
	assert.Equal(t, EpisodeEnd, session.State())

	// The first observation of an episode does not complete a
	// transition from the last one
	assert.Len(t, f.recorder.agent.transitions(), 2)

	rewards, err := tracker.LoadData(f.config.RewardLog)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, rewards)
}

func TestOnlineContinueEpisodesClosedMidEpisode(t *testing.T) {
	f := newFixture(t)
	f.config.ContinueEpisodes = true
	session, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 1, NumActions: 2})
	require.NoError(t, err)

	_, err = client.Step(bridge.Observation{State: []float64{0}})
	require.NoError(t, err)
	_, err = client.Step(bridge.Observation{State: []float64{1}, Reward: 1,
		Done: true})
	require.NoError(t, err)
	_, err = client.Step(bridge.Observation{State: []float64{0}})
	require.NoError(t, err)
	conn.Close()

	assert.ErrorIs(t, <-result, bridge.ErrConnectionClosed)
	assert.Equal(t, Step, session.State())
}

func TestOnlineContinueEpisodesClosedBeforeFirstEpisode(t *testing.T) {
	f := newFixture(t)
	f.config.ContinueEpisodes = true
	_, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 1, NumActions: 2})
	require.NoError(t, err)
	conn.Close()

	assert.ErrorIs(t, <-result, bridge.ErrConnectionClosed)
	_, err = f.store.Load()
	assert.ErrorIs(t, err, checkpointer.ErrNotFound)
}

func TestOnlineFrameTooLarge(t *testing.T) {
	f := newFixture(t)
	_, conn, result := start(t, context.Background(), f.config)

	_, err := conn.Write([]byte{0xff, 0xff, 0xff, 0xff})
	require.NoError(t, err)

	// The announced payload is never read, so the fallback dimensions
	// are not used
	assert.ErrorIs(t, <-result, bridge.ErrFrameTooLarge)
	assert.Nil(t, f.recorder.agent)
}

func TestOnlineCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, conn, result := start(t, ctx, f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 1, NumActions: 2})
	require.NoError(t, err)
	_, err = client.Step(bridge.Observation{State: []float64{0}})
	require.NoError(t, err)

	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)

	_, err = f.store.Load()
	assert.ErrorIs(t, err, checkpointer.ErrNotFound)
}

func TestOnlineRestoresCheckpoint(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(checkpointer.Record{Features: 1,
		Actions: 2, Counter: 7}))

	_, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 1, NumActions: 2})
	require.NoError(t, err)
	require.NotNil(t, f.recorder.agent.restored)
	assert.Equal(t, 7, f.recorder.agent.restored.Counter)

	_, err = client.Step(bridge.Observation{State: []float64{0}, Done: true})
	require.NoError(t, err)
	require.NoError(t, <-result)
}

func TestOnlineIncompatibleCheckpoint(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(checkpointer.Record{Features: 5,
		Actions: 5, Counter: 7}))

	_, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 1, NumActions: 2})
	require.NoError(t, err)
	assert.Nil(t, f.recorder.agent.restored)

	_, err = client.Step(bridge.Observation{State: []float64{0}, Done: true})
	require.NoError(t, err)
	require.NoError(t, <-result)

	record, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, record.Features)
}

func TestOnlineCorruptCheckpoint(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "dqn_model.gob")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	_, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err := client.Handshake(bridge.Handshake{NumStates: 1, NumActions: 2})
	assert.ErrorIs(t, err, bridge.ErrConnectionClosed)
	assert.Error(t, <-result)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(data))
}

func TestOnlineRunTwice(t *testing.T) {
	f := newFixture(t)
	session, conn, result := start(t, context.Background(), f.config)
	conn.Close()
	assert.ErrorIs(t, <-result, bridge.ErrConnectionClosed)

	assert.Error(t, session.Run(context.Background()))
}

func TestNewOnlineInvalid(t *testing.T) {
	f := newFixture(t)
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := f.config
	c.Agent = nil
	_, err := NewOnline(server, c)
	assert.Error(t, err)

	c = f.config
	c.Fallback = bridge.Handshake{}
	_, err = NewOnline(server, c)
	assert.Error(t, err)
}

func TestOnlineDeepQ(t *testing.T) {
	init, err := initwfn.New(initwfn.GlorotU, 1.0)
	require.NoError(t, err)

	f := newFixture(t)
	f.config.Agent = deepq.Config{
		PolicyLayers:         []int{8},
		Activations:          []*network.Activation{network.ReLU()},
		InitWFn:              init,
		Solver:               solver.Adam,
		StepSize:             1e-3,
		ClipNorm:             1.0,
		Gamma:                0.95,
		Exploration:          policy.LinearDecay{Start: 0.25, Final: 0.05, Steps: 20},
		Capacity:             16,
		BatchSize:            4,
		TargetUpdateInterval: 5,
		Seed:                 1,
	}
	_, conn, result := start(t, context.Background(), f.config)
	client := bridge.NewClient(conn)

	_, err = client.Handshake(bridge.Handshake{NumStates: 2, NumActions: 3})
	require.NoError(t, err)

	const steps = 12
	for i := 0; i < steps; i++ {
		x := float64(i) / steps
		action, err := client.Step(bridge.Observation{
			State:  []float64{x, 1 - x},
			Reward: x,
			Done:   i == steps-1,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, action, 0)
		assert.Less(t, action, 3)
	}
	require.NoError(t, <-result)

	record, err := f.store.Load()
	require.NoError(t, err)
	assert.NoError(t, record.Compatible(2, 3))

	// Learning starts once the replay holds a batch
	assert.Equal(t, steps-1-4+1, record.Counter)
	assert.NotEmpty(t, record.Online)
	assert.Len(t, record.Target, len(record.Online))
}
