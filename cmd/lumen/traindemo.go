package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/checkpoint"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/optim"
	"github.com/born-ml/lumen/internal/tensor"
	"github.com/born-ml/lumen/internal/zoo"
)

// runTrainDemo trains the zoo ConvNet on a synthetic disc dataset and
// saves the weights as a .lumen checkpoint, so render has a trained
// model to visualize without downloading anything.
func runTrainDemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train-demo", flag.ContinueOnError)
	out := fs.String("out", "convnet-demo.lumen", "where to save the trained weights")
	epochs := fs.Int("epochs", 5, "training epochs")
	batchSize := fs.Int("batch", 32, "batch size")
	samples := fs.Int("samples", 640, "training samples per epoch")
	lr := fs.Float64("lr", 1e-3, "Adam learning rate")
	seed := fs.Int64("seed", 42, "dataset seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batchSize <= 0 || *samples < *batchSize {
		return errors.New("need -samples >= -batch > 0")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	backend := newBackend()
	model := zoo.ConvNet(backend)
	criterion := nn.NewCrossEntropyLoss(backend)
	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: float32(*lr)}, backend)
	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // reproducible synthetic data

	tape := backend.GetTape()
	tape.StartRecording()
	defer func() {
		tape.Clear()
		tape.StopRecording()
	}()

	batches := *samples / *batchSize
	interrupted := false
	for epoch := 1; epoch <= *epochs && !interrupted; epoch++ {
		bar := progressbar.NewOptions(batches,
			progressbar.OptionSetDescription(fmt.Sprintf("epoch %d/%d", epoch, *epochs)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		var epochLoss, epochAcc float64
		seen := 0
		for b := 0; b < batches; b++ {
			select {
			case <-ctx.Done():
				interrupted = true
			default:
			}
			if interrupted {
				break
			}

			images, labels, err := discBatch(rng, *batchSize, backend)
			if err != nil {
				return err
			}
			var logits *tensor.Tensor[float32, Backend]
			loss := optimizer.Step(func() (float32, map[*tensor.RawTensor]*tensor.RawTensor) {
				tape.Clear()
				logits = model.Forward(images)
				lossTensor := criterion.Forward(logits, labels)
				grads := autodiff.Backward(lossTensor, backend)
				return lossTensor.Item(), grads
			})
			epochLoss += float64(loss)
			epochAcc += float64(nn.Accuracy(logits, labels))
			seen++
			_ = bar.Add(1)
		}
		_ = bar.Finish()
		if seen > 0 {
			fmt.Printf("epoch %d/%d: loss %.4f, accuracy %.1f%%\n",
				epoch, *epochs, epochLoss/float64(seen), 100*epochAcc/float64(seen))
		}
	}
	if interrupted {
		fmt.Println("training interrupted, saving the weights so far")
	}

	meta := map[string]string{
		"dataset": "synthetic-discs",
		"epochs":  strconv.Itoa(*epochs),
		"seed":    strconv.FormatInt(*seed, 10),
	}
	if err := checkpoint.Save(model, *out, "convnet", meta); err != nil {
		return err
	}
	info, err := os.Stat(*out)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s (%s)\n", *out, humanize.Bytes(uint64(info.Size())))
	return nil
}

// discBatch draws 32x32 training images, each showing one of the ten
// class motifs: a bright disc whose ring position and color follow the
// class index, over a noisy background with jittered placement.
func discBatch(rng *rand.Rand, batch int, backend Backend) (*tensor.Tensor[float32, Backend], *tensor.Tensor[int32, Backend], error) {
	const (
		channels = 3
		side     = 32
		classes  = 10
	)
	images := make([]float32, batch*channels*side*side)
	labels := make([]int32, batch)

	for b := 0; b < batch; b++ {
		class := rng.Intn(classes)
		labels[b] = int32(class)

		angle := 2 * math.Pi * float64(class) / classes
		cx := side/2 + int(10*math.Cos(angle)) + rng.Intn(3) - 1
		cy := side/2 + int(10*math.Sin(angle)) + rng.Intn(3) - 1
		radius := 4 + rng.Intn(3)
		color := [channels]float32{
			0.3 + 0.7*float32(class%3)/2,
			0.3 + 0.7*float32((class/3)%3)/2,
			0.3 + 0.7*float32(class%4)/3,
		}

		base := b * channels * side * side
		for c := 0; c < channels; c++ {
			for y := 0; y < side; y++ {
				for x := 0; x < side; x++ {
					v := 0.1 * rng.Float32()
					dx, dy := x-cx, y-cy
					if dx*dx+dy*dy <= radius*radius {
						v += color[c]
					}
					if v > 1 {
						v = 1
					}
					images[base+(c*side+y)*side+x] = v
				}
			}
		}
	}

	x, err := tensor.FromSlice(images, tensor.Shape{batch, channels, side, side}, backend)
	if err != nil {
		return nil, nil, err
	}
	y, err := tensor.FromSlice(labels, tensor.Shape{batch}, backend)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
