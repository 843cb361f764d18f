package trainer

import "os"
import "strconv"

import "github.com/dustin/go-humanize"
import "github.com/google/uuid"
import "github.com/pkg/errors"
import "go.uber.org/zap"

import "github.com/neurlang/svmdetector/datasets"
import "github.com/neurlang/svmdetector/inference"
import "github.com/neurlang/svmdetector/model"
import "github.com/neurlang/svmdetector/svmerr"

// Solver fits a dual-form model to an example set.
// learning.HyperParameters is the solver used by the commands.
type Solver interface {
	Fit(d datasets.Dataset) (*model.Model, error)
}

// State is the position of a Trainer in its lifecycle.
type State uint8

const (
	Created State = iota
	Writing
	Closed
	Trained
	Saved
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Writing:
		return "writing"
	case Closed:
		return "closed"
	case Trained:
		return "trained"
	case Saved:
		return "saved"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger for a training run.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trainer) {
		t.log = l
	}
}

// WithEvaluation makes the trainer report the training accuracy of the
// collapsed model, measured on a sample sized for the given significance
// level (1..99). Zero measures the whole example set.
func WithEvaluation(significance byte) Option {
	return func(t *Trainer) {
		t.evaluate = true
		t.significance = significance
	}
}

// Trainer moves through Created, Writing, Closed, Trained and Saved, in
// that order and never backwards.
type Trainer struct {
	examplePath string
	solver      Solver
	sink        *datasets.Sink
	state       State
	model       *model.Model

	log          *zap.Logger
	evaluate     bool
	significance byte
}

// New returns a Trainer for an example file that already exists.
func New(examplePath string, solver Solver, opts ...Option) *Trainer {
	t := &Trainer{
		examplePath: examplePath,
		solver:      solver,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create returns a Trainer with a fresh example file open for writing.
func Create(examplePath string, solver Solver, opts ...Option) (*Trainer, error) {
	sink, err := datasets.Open(examplePath)
	if err != nil {
		return nil, err
	}
	t := New(examplePath, solver, opts...)
	t.sink = sink
	return t, nil
}

// State returns the current lifecycle state.
func (t *Trainer) State() State {
	return t.state
}

// Model returns the trained model, or nil before training.
func (t *Trainer) Model() *model.Model {
	return t.model
}

// Count returns the number of examples written through this Trainer.
func (t *Trainer) Count() int {
	if t.sink == nil {
		return 0
	}
	return t.sink.Count()
}

// WriteExample appends one labeled dense vector to the example file.
func (t *Trainer) WriteExample(vector []float64, positive bool) error {
	const op = "write example"
	if t.state > Writing {
		return svmerr.Newf(svmerr.InvalidState, op, "trainer is %v", t.state)
	}
	if t.sink == nil {
		return svmerr.New(svmerr.InvalidState, op, errors.New("trainer has no example sink"))
	}
	if err := t.sink.Write(vector, positive); err != nil {
		return err
	}
	t.state = Writing
	return nil
}

// Close finalizes the example file. No examples can be written afterwards.
func (t *Trainer) Close() error {
	if t.state >= Closed {
		return nil
	}
	if t.sink != nil {
		if err := t.sink.Close(); err != nil {
			return err
		}
	}
	t.state = Closed
	return nil
}

// TrainAndSaveModel closes the example file, fits the solver to it and
// writes the model to modelPath. The model file is only created once the
// solver has returned a valid model. When writing the model fails the
// Trainer stays Trained, and a later call saves the already fitted model
// without refitting. Once Saved, further calls are InvalidState.
func (t *Trainer) TrainAndSaveModel(modelPath string) error {
	const op = "train and save model"
	switch {
	case t.state == Trained:
		return t.save(modelPath)
	case t.state > Closed:
		return svmerr.Newf(svmerr.InvalidState, op, "trainer is %v", t.state)
	}
	if err := t.Close(); err != nil {
		return err
	}

	info, err := os.Stat(t.examplePath)
	if err != nil {
		return svmerr.New(svmerr.IO, op, err)
	}
	if info.Size() == 0 {
		return svmerr.Newf(svmerr.Training, op, "example file %s is empty", t.examplePath)
	}

	d, err := datasets.ReadFile(t.examplePath)
	if err != nil {
		return classify(op, err)
	}
	t.log.Info("read example file",
		zap.String("path", t.examplePath),
		zap.String("size", humanize.Bytes(uint64(info.Size()))),
		zap.Int("examples", len(d)),
		zap.Int("features", d.Dim()))

	m, err := t.solver.Fit(d)
	if err != nil {
		return classify(op, err)
	}
	if m == nil {
		return svmerr.New(svmerr.Training, op, errors.New("solver returned no model"))
	}
	if err := m.Validate(); err != nil {
		return svmerr.Newf(svmerr.Training, op, "solver returned an invalid model: %v", errors.Cause(err))
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	t.model = m
	t.state = Trained

	if t.evaluate && m.IsLinear() {
		acc := evaluate(inference.Collapse(m, 1), d, t.significance)
		t.log.Info("training accuracy",
			zap.Float64("percent", acc.Percent()),
			zap.Int("sampled", acc.Total()),
			zap.Int("false_positives", acc.FalsePositives),
			zap.Int("false_negatives", acc.FalseNegatives))
	}

	return t.save(modelPath)
}

func (t *Trainer) save(modelPath string) error {
	if err := model.WriteFile(modelPath, t.model); err != nil {
		return err
	}
	t.state = Saved
	t.log.Info("saved model",
		zap.String("path", modelPath),
		zap.String("id", t.model.ID),
		zap.Int("support_vectors", t.model.SupportVectors.Count()))
	return nil
}

// classify reports unclassified solver and parser failures as training
// errors and passes classified ones through.
func classify(op string, err error) error {
	if svmerr.KindOf(err) != 0 {
		return err
	}
	return svmerr.New(svmerr.Training, op, err)
}

// Train fits solver to the existing example file at examplePath and saves
// the model to modelPath.
func Train(examplePath, modelPath string, solver Solver, opts ...Option) error {
	return New(examplePath, solver, opts...).TrainAndSaveModel(modelPath)
}
