package telemetry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/keagan/gyrocut/pkg/util"
)

// ReadStream loads a cached stream file. Timestamps in the file are
// expressed in unit and converted to seconds.
func ReadStream(path string, unit TimeUnit) (Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrIO, err)
	}
	if len(data) == 0 {
		return Stream{}, nil
	}

	var s Stream
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrFormat, err)
	}
	if err := s.Finite(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Normalize(unit)
	return s, nil
}

// WriteStream persists a stream of second timestamps as a JSON array,
// atomically. Timestamps are written in unit so that ReadStream with the
// same unit returns s unchanged.
func WriteStream(path string, s Stream, unit TimeUnit) error {
	data, err := json.MarshalIndent(s.In(unit), "", "    ")
	if err != nil {
		return fmt.Errorf("encode stream: %w", err)
	}
	if err := util.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrIO, err)
	}
	return nil
}
