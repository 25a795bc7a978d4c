// Package network implements the feed forward neural networks used to
// approximate action values.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network built on a Gorgonia computational
// graph with a fixed input batch size.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the input node before a forward pass
	SetInput([]float64) error

	// Set copies the weights of another NeuralNet with identical layer
	// shapes into the receiver
	Set(NeuralNet) error

	// Weights returns a copy of all learnable parameters, one slice per
	// learnable node in the order given by Learnables
	Weights() [][]float64
	SetWeights([][]float64) error

	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}
