package artifact

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ShaniStaretz-ai/FinalProject/internal/encoder"
	"github.com/ShaniStaretz-ai/FinalProject/internal/estimator"
)

var (
	ErrInvalidName      = errors.New("invalid model name")
	ErrArtifactNotFound = errors.New("model artifact not found")
)

func init() {
	// Concrete estimator types carried behind the interface need explicit
	// gob registration.
	gob.Register(&estimator.Linear{})
	gob.Register(&estimator.Logistic{})
	gob.Register(&estimator.KNN{})
	gob.Register(&estimator.Forest{})
}

// Pipeline is the serialized artifact: the fitted encoder plus the fitted
// estimator, enough to align and score a prediction row.
type Pipeline struct {
	ModelType string
	Encoder   *encoder.Encoder
	Estimator estimator.Estimator
}

// Store persists fitted pipelines under a single directory, one gob file and
// one metrics JSON sidecar per model name.
type Store struct {
	dir string
	log *zap.Logger
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create models directory: %w", err)
	}
	return &Store{dir: dir, log: zap.L().With(zap.String("component", "artifact"))}, nil
}

// Save writes the pipeline and its metrics sidecar, returning the artifact
// path. A failed write leaves no partial files behind.
func (s *Store) Save(name string, p *Pipeline, metrics map[string]float64) (string, error) {
	if !validName(name) {
		return "", ErrInvalidName
	}

	path := s.artifactPath(name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(p); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode pipeline: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close artifact file: %w", err)
	}

	data, err := json.MarshalIndent(metrics, "", "    ")
	if err == nil {
		err = os.WriteFile(s.metricsPath(name), data, 0644)
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}

	s.log.Info("Artifact saved", zap.String("model", name), zap.String("path", path))
	return path, nil
}

// Load reads a pipeline back. Returns ErrArtifactNotFound when the file is
// missing, which callers must treat distinctly from "model never existed".
func (s *Store) Load(name string) (*Pipeline, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}

	f, err := os.Open(s.artifactPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	p := &Pipeline{}
	if err := gob.NewDecoder(f).Decode(p); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline: %w", err)
	}
	return p, nil
}

// Delete removes the artifact and its metrics sidecar. Returns whether the
// artifact file existed.
func (s *Store) Delete(name string) (bool, error) {
	if !validName(name) {
		return false, ErrInvalidName
	}

	existed := true
	if err := os.Remove(s.artifactPath(name)); err != nil {
		if !os.IsNotExist(err) {
			return false, err
		}
		existed = false
	}
	if err := os.Remove(s.metricsPath(name)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Failed to remove metrics file", zap.String("model", name), zap.Error(err))
	}
	return existed, nil
}

// Exists reports whether the artifact file is present on disk.
func (s *Store) Exists(name string) bool {
	if !validName(name) {
		return false
	}
	_, err := os.Stat(s.artifactPath(name))
	return err == nil
}

func (s *Store) artifactPath(name string) string {
	return filepath.Join(s.dir, name+".gob")
}

func (s *Store) metricsPath(name string) string {
	return filepath.Join(s.dir, name+"_metrics.json")
}

// validName rejects anything that could escape the models directory. Checked
// before any filesystem call.
func validName(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return true
}
