// Package archive stores uploaded videos, frames and sensor data in flat
// per-category directories.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/models"
	"github.com/evmaki/pothos/internal/storage"
)

// DefaultSensorLogName is the data file the capture agent maintains.
const DefaultSensorLogName = "sensor_log.json"

// Service coordinates archive storage and change notification.
type Service struct {
	store   storage.Provider
	onAdded func(category models.Category, name string)
}

// NewService creates a new archive service. onAdded, if non-nil, is called
// after every successful save.
func NewService(store storage.Provider, onAdded func(models.Category, string)) *Service {
	return &Service{store: store, onAdded: onAdded}
}

// ValidateName accepts a plain base name with the category's extension.
// Commas and colons are allowed since frame and video names carry them.
func ValidateName(name string, category models.Category) error {
	switch {
	case name == "",
		strings.HasPrefix(name, "."),
		strings.ContainsAny(name, "/\\\x00"),
		strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q", apperr.ErrInvalidName, name)
	}
	if !strings.HasSuffix(name, category.Ext()) || name == category.Ext() {
		return fmt.Errorf("%w: %q must end with %s", apperr.ErrInvalidName, name, category.Ext())
	}
	return nil
}

// List returns the files of a category, sorted ascending by name.
func (s *Service) List(_ context.Context, category models.Category) ([]models.FileMetadata, error) {
	return s.store.List(category.Dir(), category.Ext())
}

// Names returns the file names of a category, sorted ascending.
func (s *Service) Names(ctx context.Context, category models.Category) ([]string, error) {
	metas, err := s.List(ctx, category)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(metas))
	for i, m := range metas {
		names[i] = m.Name
	}
	return names, nil
}

// Path resolves a stored file to its absolute location.
func (s *Service) Path(_ context.Context, category models.Category, name string) (string, error) {
	if err := ValidateName(name, category); err != nil {
		return "", err
	}
	abs, err := s.store.Abs(path.Join(category.Dir(), name))
	if err != nil {
		return "", err
	}
	ok, err := storage.Exists(abs)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.ErrNotFound
	}
	return abs, nil
}

// Read returns the content of a stored file.
func (s *Service) Read(_ context.Context, category models.Category, name string) ([]byte, error) {
	if err := ValidateName(name, category); err != nil {
		return nil, err
	}
	data, err := s.store.Read(path.Join(category.Dir(), name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Save atomically stores r under name, replacing any previous version.
func (s *Service) Save(_ context.Context, category models.Category, name string, r io.Reader) (int64, error) {
	if err := ValidateName(name, category); err != nil {
		return 0, err
	}
	n, err := s.store.WriteFrom(path.Join(category.Dir(), name), r)
	if err != nil {
		return n, err
	}
	if s.onAdded != nil {
		s.onAdded(category, name)
	}
	return n, nil
}

// Latest returns the lexicographically last video.
func (s *Service) Latest(ctx context.Context) (models.FileMetadata, error) {
	metas, err := s.List(ctx, models.CategoryVideo)
	if err != nil {
		return models.FileMetadata{}, err
	}
	if len(metas) == 0 {
		return models.FileMetadata{}, apperr.ErrNotFound
	}
	return metas[len(metas)-1], nil
}

// SensorLog decodes a sensor log stored in the data category. An empty
// name means DefaultSensorLogName.
func (s *Service) SensorLog(ctx context.Context, name string) (models.SensorLog, error) {
	if name == "" {
		name = DefaultSensorLogName
	}
	data, err := s.Read(ctx, models.CategoryData, name)
	if err != nil {
		return nil, err
	}
	log := models.SensorLog{}
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", name, err)
	}
	return log, nil
}
