package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/evmaki/pothos/internal/models"
	"github.com/evmaki/pothos/internal/storage"
)

// AppendReading adds one entry to the JSON sensor log at path, creating
// the file when it does not exist. An existing entry for token is
// replaced.
func AppendReading(path, token string, reading models.SensorReading) error {
	log := models.SensorLog{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("sensor log: read: %w", err)
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &log); err != nil {
			return fmt.Errorf("sensor log: decode %s: %w", path, err)
		}
	}

	log[token] = reading

	out, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("sensor log: encode: %w", err)
	}
	if _, err := storage.WriteFileAtomic(path, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("sensor log: write: %w", err)
	}
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
