package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// headState is the serialized form of a trained advanced head.
type headState struct {
	Model        string    `json:"model"`
	Encoder      string    `json:"encoder"`
	Dimension    int       `json:"dimension"`
	IncludeDense bool      `json:"include_dense"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	DenseMean    []float64 `json:"dense_mean,omitempty"`
	DenseStd     []float64 `json:"dense_std,omitempty"`
}

// checkpointFile wraps the state with a SHA-256 digest of its exact encoded
// bytes. The raw message must round-trip unmodified for the digest to verify.
type checkpointFile struct {
	State    json.RawMessage `json:"state"`
	Checksum string          `json:"checksum"`
}

// SaveCheckpoint persists the fitted head as checksummed JSON.
func (a *Advanced) SaveCheckpoint(path string) error {
	if !a.fitted {
		return fmt.Errorf("cannot checkpoint an unfitted model")
	}

	state := headState{
		Model:        a.Name(),
		Encoder:      a.enc.Name(),
		Dimension:    a.enc.Dimension(),
		IncludeDense: a.opts.IncludeDenseFeatures,
		Weights:      a.weights,
		Bias:         a.bias,
		DenseMean:    a.denseMean,
		DenseStd:     a.denseStd,
	}
	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint state: %w", err)
	}
	sum := sha256.Sum256(stateBytes)

	out, err := json.Marshal(checkpointFile{
		State:    stateBytes,
		Checksum: hex.EncodeToString(sum[:]),
	})
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores a head saved by SaveCheckpoint. A malformed file,
// a digest mismatch, or a state that does not fit the configured encoder
// fails with CheckpointCorruptionError.
func (a *Advanced) LoadCheckpoint(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var file checkpointFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return &CheckpointCorruptionError{Path: path, Reason: "invalid checkpoint encoding"}
	}
	sum := sha256.Sum256(file.State)
	if hex.EncodeToString(sum[:]) != file.Checksum {
		return &CheckpointCorruptionError{Path: path, Reason: "checksum mismatch"}
	}

	var state headState
	if err := json.Unmarshal(file.State, &state); err != nil {
		return &CheckpointCorruptionError{Path: path, Reason: "invalid state encoding"}
	}
	if state.Encoder != a.enc.Name() || state.Dimension != a.enc.Dimension() {
		return &CheckpointCorruptionError{
			Path: path,
			Reason: fmt.Sprintf("checkpoint was trained with encoder %s/%d, configured %s/%d",
				state.Encoder, state.Dimension, a.enc.Name(), a.enc.Dimension()),
		}
	}
	width := state.Dimension
	if state.IncludeDense {
		width += len(state.DenseMean)
	}
	if len(state.Weights) != width {
		return &CheckpointCorruptionError{Path: path, Reason: "weight vector size mismatch"}
	}

	a.weights = state.Weights
	a.bias = state.Bias
	a.denseMean = state.DenseMean
	a.denseStd = state.DenseStd
	a.opts.IncludeDenseFeatures = state.IncludeDense
	a.fitted = true
	return nil
}
