// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-based optimization algorithms.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
// Optimizers are driven by step functions: each call to Step receives a
// closure that re-evaluates the objective and its gradients. The
// optimizer invokes it, applies the returned gradients to its bound
// parameters, and reports the loss.
//
//	import (
//	    "github.com/born-ml/lumen/optim"
//	    "github.com/born-ml/lumen/autodiff"
//	    "github.com/born-ml/lumen/backend/cpu"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    model := zoo.ConvNet(backend)
//
//	    optimizer := optim.NewAdam(
//	        model.Parameters(),
//	        optim.AdamConfig{LR: 0.001},
//	        backend,
//	    )
//
//	    tape := backend.GetTape()
//	    tape.StartRecording()
//	    defer tape.StopRecording()
//
//	    for step := 0; step < 100; step++ {
//	        loss := optimizer.Step(func() (float32, map[*tensor.RawTensor]*tensor.RawTensor) {
//	            tape.Clear()
//	            out := model.Forward(input)
//	            lossTensor := criterion.Forward(out, targets)
//	            grads := autodiff.Backward(lossTensor, backend)
//	            return lossTensor.Item(), grads
//	        })
//	        _ = loss
//	    }
//	}
//
// # Optimizers
//
// SGD (Stochastic Gradient Descent):
//   - Optional momentum via velocity buffers
//   - Default LR 0.01
//
// Adam (Adaptive Moment Estimation):
//   - Per-parameter first and second moment estimates
//   - Bias correction
//   - Defaults: LR 0.001, Betas {0.9, 0.999}, Eps 1e-8
package optim
