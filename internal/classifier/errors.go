package classifier

import "fmt"

// TrainingDivergenceError is fatal to the current training run: the loss or
// the model parameters went non-finite. The run must abort and surface the
// diagnostic state, never fall back to a stale model.
type TrainingDivergenceError struct {
	Model string
	Epoch int
	Loss  float64
}

func (e *TrainingDivergenceError) Error() string {
	return fmt.Sprintf("training diverged for model %q at epoch %d (loss=%v)", e.Model, e.Epoch, e.Loss)
}

// CheckpointCorruptionError reports a malformed or tampered saved model state.
type CheckpointCorruptionError struct {
	Path   string
	Reason string
}

func (e *CheckpointCorruptionError) Error() string {
	return fmt.Sprintf("corrupt checkpoint %s: %s", e.Path, e.Reason)
}
