package source

import (
	"context"
	"os"

	"github.com/rileyhilliard/sgpu/internal/errors"
)

// FileSource replays captured scontrol output from disk. The file is re-read
// on every fetch, so editing it while the dashboard runs simulates a change
// on the cluster.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Describe implements Source.
func (s *FileSource) Describe() string {
	return "replay " + s.path
}

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{ExitCode: -1}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Output{ExitCode: -1}, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't read replay file "+s.path,
			"Capture one with: scontrol show nodes > nodes.txt")
	}
	return Output{Text: string(data)}, nil
}
