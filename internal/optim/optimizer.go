// Package optim implements gradient-based optimizers driven by step
// functions.
//
// This package provides:
//   - Optimizer interface: step-function driven optimization
//   - SGD: stochastic gradient descent with momentum
//   - Adam: adaptive moment estimation
//
// An optimizer is bound to a parameter list at construction. Each call
// to Step receives a StepFunc that re-evaluates the objective and its
// gradients; the optimizer invokes it, applies the returned gradients
// to its parameters, and reports the loss. This inversion keeps the
// number of objective evaluations in the optimizer's hands, which is
// what line-search and re-evaluating methods need, and it is the
// contract the render loop's optimization step is written against.
//
// Example:
//
//	optimizer := optim.NewAdam(params, optim.AdamConfig{LR: 0.05}, backend)
//
//	for step := 1; step <= steps; step++ {
//	    loss := optimizer.Step(func() (float32, map[*tensor.RawTensor]*tensor.RawTensor) {
//	        tape.Clear()
//	        out := model.Forward(input)
//	        lossTensor := criterion.Forward(out, targets)
//	        grads := autodiff.Backward(lossTensor, backend)
//	        return lossTensor.Raw().AsFloat32()[0], grads
//	    })
//	    _ = loss
//	}
package optim

import (
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// StepFunc evaluates the objective once: it runs the forward pass,
// backpropagates, and returns the scalar loss together with the
// gradient map produced by the tape.
type StepFunc func() (loss float32, grads map[*tensor.RawTensor]*tensor.RawTensor)

// Optimizer is the interface all optimization algorithms implement.
//
// Step invokes the given StepFunc at least once, applies the gradients
// it returns to the bound parameters, and returns the loss from the
// last invocation. LR exposes the current learning rate for monitoring.
type Optimizer interface {
	Step(fn StepFunc) float32
	LR() float32
}

// getGradient retrieves the gradient for a parameter from a gradient
// map. Returns nil when the parameter did not participate in the
// forward pass.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
