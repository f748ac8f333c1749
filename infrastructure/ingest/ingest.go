// Package ingest turns request bodies and sample files into inferred syntax
// trees ready for aggregation.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	j "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Split returns the samples carried by body. A top level array is a list of
// samples; anything else is read as a stream of one or more JSON documents.
func Split(body []byte) ([][]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, pkgerrors.NewValidationError("request body holds no samples")
	}

	if trimmed[0] == '[' {
		if !j.Valid(trimmed) {
			return nil, pkgerrors.NewInferenceError("malformed JSON array of samples")
		}
		var raw []j.RawMessage
		if err := j.Unmarshal(trimmed, &raw); err != nil {
			return nil, pkgerrors.NewInferenceError("malformed JSON array of samples").WithCause(err)
		}
		if len(raw) == 0 {
			return nil, pkgerrors.NewValidationError("request body holds no samples")
		}
		out := make([][]byte, len(raw))
		for i, r := range raw {
			out[i] = []byte(r)
		}
		return out, nil
	}

	dec := j.NewDecoder(bytes.NewReader(trimmed))
	var out [][]byte
	for {
		var raw j.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, pkgerrors.NewInferenceError(fmt.Sprintf("malformed JSON after %d samples", len(out))).WithCause(err)
		}
		if !j.Valid(raw) {
			return nil, pkgerrors.NewInferenceError(fmt.Sprintf("malformed JSON in sample %d", len(out)+1))
		}
		out = append(out, []byte(raw))
	}
	return out, nil
}

// Batch is the inference result of a group of samples. Errs[i] is set when
// sample i was rejected, in which case Nodes[i] is nil.
type Batch struct {
	Nodes []syntax.Node
	Errs  []error
}

// Rejected counts the failed samples
func (b *Batch) Rejected() int {
	n := 0
	for _, err := range b.Errs {
		if err != nil {
			n++
		}
	}
	return n
}

func (b *Batch) append(other Batch) {
	b.Nodes = append(b.Nodes, other.Nodes...)
	b.Errs = append(b.Errs, other.Errs...)
}

// Infer runs inference on every sample. A failing sample only rejects itself.
func Infer(samples [][]byte) Batch {
	batch := Batch{Nodes: make([]syntax.Node, len(samples)), Errs: make([]error, len(samples))}
	for i, raw := range samples {
		batch.Nodes[i], batch.Errs[i] = syntax.InferJSON(raw)
	}
	return batch
}

// FileInferer infers the samples of many files concurrently
type FileInferer struct {
	workers int
	logger  *zap.Logger
}

func NewFileInferer(workers int, logger *zap.Logger) *FileInferer {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileInferer{workers: workers, logger: logger}
}

// InferFiles reads and infers every file. Results keep the order of paths so
// that aggregation is deterministic. An unreadable or malformed file aborts
// the whole run; a sample that fails inference is only recorded in Errs.
func (f *FileInferer) InferFiles(ctx context.Context, paths []string) (Batch, error) {
	results := make([]Batch, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			samples, err := Split(data)
			if err != nil {
				return pkgerrors.Wrapf(err, "%s", path)
			}
			results[i] = Infer(samples)
			f.logger.Debug("Inferred sample file",
				zap.String("path", path),
				zap.Int("samples", len(samples)),
				zap.Int("rejected", results[i].Rejected()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	var out Batch
	for _, r := range results {
		out.append(r)
	}
	return out, nil
}
