package clips

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/keagan/gyrocut/pkg/util"
)

// ErrNoArtifact is returned when a segments artifact does not exist or is empty
var ErrNoArtifact = errors.New("segments artifact not found")

// Artifact is the persisted derived data of one video
type Artifact struct {
	Segments       []Segment       `json:"segments"`
	InterestLevels []InterestLevel `json:"interest_levels"`
	// ParamsHash identifies the scoring parameters the levels were computed
	// with. Empty for artifacts written by hand or by older versions.
	ParamsHash string `json:"params_hash,omitempty"`
}

// ReadArtifact loads a segments artifact from path
func ReadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoArtifact
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoArtifact
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if a.Segments == nil {
		a.Segments = []Segment{}
	}
	if a.InterestLevels == nil {
		a.InterestLevels = []InterestLevel{}
	}
	return &a, nil
}

// WriteArtifact overwrites the artifact at path atomically
func WriteArtifact(path string, a *Artifact) error {
	if a == nil {
		return fmt.Errorf("artifact cannot be nil")
	}
	out := *a
	if out.Segments == nil {
		out.Segments = []Segment{}
	}
	if out.InterestLevels == nil {
		out.InterestLevels = []InterestLevel{}
	}

	data, err := json.MarshalIndent(&out, "", "    ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := util.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// WithSegments returns a copy of the artifact whose segment list is replaced
// wholesale, e.g. after manual curation. Interest levels are kept.
func (a *Artifact) WithSegments(segments []Segment) *Artifact {
	cp := *a
	cp.Segments = Normalize(segments)
	return &cp
}
