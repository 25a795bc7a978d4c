package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// learnable is a G.ValueGrad backed by plain tensors
type learnable struct {
	value *tensor.Dense
	grad  *tensor.Dense
}

func newLearnable(weights, grads []float64) *learnable {
	return &learnable{
		value: tensor.New(tensor.WithShape(len(weights)),
			tensor.WithBacking(append([]float64(nil), weights...))),
		grad: tensor.New(tensor.WithShape(len(grads)),
			tensor.WithBacking(append([]float64(nil), grads...))),
	}
}

func (l *learnable) Value() G.Value {
	return l.value
}

func (l *learnable) Grad() (G.Value, error) {
	return l.grad, nil
}

func (l *learnable) weights() []float64 {
	return l.value.Data().([]float64)
}

func (l *learnable) gradients() []float64 {
	return l.grad.Data().([]float64)
}

func (l *learnable) setGrad(grads []float64) {
	copy(l.gradients(), grads)
}

func TestNew(t *testing.T) {
	adam, err := New(Adam, 0.1)
	require.NoError(t, err)
	assert.Equal(t, Adam, adam.Type)
	_, ok := adam.State()
	assert.True(t, ok)

	vanilla, err := New(Vanilla, 0.1)
	require.NoError(t, err)
	_, ok = vanilla.State()
	assert.False(t, ok)
	assert.NoError(t, vanilla.SetState(State{}))
	assert.Error(t, vanilla.SetState(State{Step: 3}))

	_, err = New("sgd", 0.1)
	assert.Error(t, err)
}

func TestAdamFirstStep(t *testing.T) {
	s, err := NewDefaultAdam(0.01)
	require.NoError(t, err)

	// With bias correction the first step moves each weight by the step
	// size in the direction opposite its gradient
	l := newLearnable([]float64{1, -1, 0.5}, []float64{2, -0.3, 0})
	require.NoError(t, s.Step([]G.ValueGrad{l}))

	assert.InDeltaSlice(t, []float64{0.99, -0.99, 0.5}, l.weights(), 1e-6)

	state, _ := s.State()
	assert.Equal(t, 1, state.Step)
	assert.InDeltaSlice(t, []float64{0.2, -0.03, 0}, state.M[0], 1e-12)
}

func TestAdamZeroesGradients(t *testing.T) {
	s, err := NewDefaultAdam(0.01)
	require.NoError(t, err)

	a := newLearnable([]float64{1, -1}, []float64{2, -0.3})
	b := newLearnable([]float64{0.5}, []float64{4})
	require.NoError(t, s.Step([]G.ValueGrad{a, b}))

	assert.Equal(t, []float64{0, 0}, a.gradients())
	assert.Equal(t, []float64{0}, b.gradients())

	// A step on zero gradients keeps the first moment decaying rather
	// than reapplying the previous gradient
	require.NoError(t, s.Step([]G.ValueGrad{a, b}))
	state, _ := s.State()
	assert.InDeltaSlice(t, []float64{0.18, -0.027}, state.M[0], 1e-12)
}

func TestAdamMinimizesQuadratic(t *testing.T) {
	s, err := NewDefaultAdam(0.05)
	require.NoError(t, err)

	l := newLearnable([]float64{3, -2}, []float64{0, 0})
	model := []G.ValueGrad{l}
	for i := 0; i < 2000; i++ {
		w := l.weights()
		l.setGrad([]float64{2 * w[0], 2 * w[1]})
		require.NoError(t, s.Step(model))
	}
	assert.InDeltaSlice(t, []float64{0, 0}, l.weights(), 5e-2)
}

func TestAdamStateRoundTrip(t *testing.T) {
	trained, err := NewDefaultAdam(0.01)
	require.NoError(t, err)

	grads := []float64{0.5, -0.5}
	l := newLearnable([]float64{1, 2}, grads)
	for i := 0; i < 5; i++ {
		l.setGrad(grads)
		require.NoError(t, trained.Step([]G.ValueGrad{l}))
	}
	state, _ := trained.State()

	restored, err := NewDefaultAdam(0.01)
	require.NoError(t, err)
	require.NoError(t, restored.SetState(state))

	a := newLearnable(l.weights(), grads)
	b := newLearnable(l.weights(), grads)
	require.NoError(t, trained.Step([]G.ValueGrad{a}))
	require.NoError(t, restored.Step([]G.ValueGrad{b}))
	assert.Equal(t, a.weights(), b.weights())

	// The exported state is a copy
	state.M[0][0] = 100
	again, _ := restored.State()
	assert.NotEqual(t, 100.0, again.M[0][0])
}

func TestAdamModelMismatch(t *testing.T) {
	s, err := NewDefaultAdam(0.01)
	require.NoError(t, err)

	require.NoError(t, s.Step([]G.ValueGrad{newLearnable([]float64{1},
		[]float64{1})}))
	err = s.Step([]G.ValueGrad{
		newLearnable([]float64{1}, []float64{1}),
		newLearnable([]float64{1}, []float64{1}),
	})
	assert.Error(t, err)
}

func TestClipGradNorm(t *testing.T) {
	a := newLearnable([]float64{0, 0}, []float64{3, 0})
	b := newLearnable([]float64{0}, []float64{4})

	norm, err := ClipGradNorm([]G.ValueGrad{a, b}, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, norm, 1e-12)

	clipped := math.Sqrt(math.Pow(a.gradients()[0], 2) +
		math.Pow(b.gradients()[0], 2))
	assert.InDelta(t, 1.0, clipped, 1e-6)
	assert.InDelta(t, 0.6, a.gradients()[0]/clipped, 1e-9)
	assert.InDelta(t, 0.8, b.gradients()[0]/clipped, 1e-9)
	assert.Equal(t, 0.0, a.gradients()[1])
}

func TestClipGradNormBelowMax(t *testing.T) {
	a := newLearnable([]float64{0, 0}, []float64{0.3, 0.4})

	norm, err := ClipGradNorm([]G.ValueGrad{a}, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, norm, 1e-12)
	assert.Equal(t, []float64{0.3, 0.4}, a.gradients())
}
