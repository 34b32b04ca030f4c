package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/geocalc/geocalc/backend-go/internal/typeid"
)

var (
	ErrNotFound   = errors.New("asset not found")
	ErrInvalidPNG = errors.New("invalid png")
)

// Stored describes a saved image.
type Stored struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Store keeps exported images as files named by asset ID.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save validates data as PNG and writes it under a new asset ID.
func (s *Store) Save(data []byte) (Stored, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Stored{}, fmt.Errorf("%w: %v", ErrInvalidPNG, err)
	}

	id := typeid.NewAssetID()
	filename := id + ".png"
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0644); err != nil {
		return Stored{}, fmt.Errorf("write asset: %w", err)
	}

	slog.Info("asset stored", "id", id, "bytes", len(data))
	return Stored{
		ID:     id,
		URL:    fmt.Sprintf("/assets/%s", filename),
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Path returns the file path for an asset ID.
func (s *Store) Path(id string) (string, error) {
	if err := typeid.Validate(id, typeid.PrefixAsset); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return filepath.Join(s.dir, id+".png"), nil
}

// Delete removes an asset file.
func (s *Store) Delete(id string) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("remove asset: %w", err)
	}
	return nil
}

// Serve returns an http.Handler that serves stored files with caching headers.
func (s *Store) Serve() http.Handler {
	fs := http.FileServer(http.Dir(s.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// HandleDelete handles DELETE /assets/{id}.
func (s *Store) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.Delete(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "asset not found", http.StatusNotFound)
	case err != nil:
		slog.Error("delete asset", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
