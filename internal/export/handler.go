package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocalc/geocalc/backend-go/internal/asset"
	"github.com/geocalc/geocalc/backend-go/internal/engine"
	"github.com/geocalc/geocalc/backend-go/internal/raster"
	"github.com/geocalc/geocalc/backend-go/internal/typeid"
)

const maxBodySize = 2 << 20 // 2MB

var (
	ErrInvalidSize = errors.New("invalid image size")
	ErrTooLarge    = errors.New("image too large")
)

// Options sizes a render. Width and Height are CSS pixels; the image is
// PixelRatio times larger in each direction.
type Options struct {
	Width      int
	Height     int
	PixelRatio float64
}

// Render draws a saved graph and returns it as PNG. maxPixels bounds each
// device-pixel dimension; zero means no bound.
func Render(snapshot []byte, opts Options, maxPixels int) ([]byte, error) {
	if opts.PixelRatio <= 0 {
		opts.PixelRatio = 1
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, opts.Width, opts.Height)
	}
	w := int(math.Round(float64(opts.Width) * opts.PixelRatio))
	h := int(math.Round(float64(opts.Height) * opts.PixelRatio))
	if maxPixels > 0 && (w > maxPixels || h > maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrTooLarge, w, h, maxPixels)
	}

	e := engine.NewEngine()
	e.SetPixelRatio(opts.PixelRatio)
	if err := e.LoadSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	surface, err := raster.NewSurface(w, h)
	if err != nil {
		return nil, err
	}
	defer surface.Close()
	e.RenderTo(surface)

	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Handler serves graph image exports.
type Handler struct {
	store     *asset.Store
	maxPixels int
}

// NewHandler creates an export handler. store may be nil, in which case
// stored exports are refused.
func NewHandler(store *asset.Store, maxPixels int) *Handler {
	return &Handler{store: store, maxPixels: maxPixels}
}

type exportRequest struct {
	Snapshot   json.RawMessage `json:"snapshot"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	PixelRatio float64         `json:"pixelRatio"`
	Name       string          `json:"name"`
	Store      bool            `json:"store"`
}

// ExportPNG handles POST /export/png. The image is streamed back, or saved
// as an asset when the request sets store.
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Snapshot) == 0 {
		http.Error(w, "snapshot is required", http.StatusBadRequest)
		return
	}
	if req.Store && h.store == nil {
		http.Error(w, "image storage is not configured", http.StatusServiceUnavailable)
		return
	}

	exportID := typeid.NewExportID()
	slog.Info("export started", "export_id", exportID, "width", req.Width, "height", req.Height, "ratio", req.PixelRatio)

	data, err := Render(req.Snapshot, Options{Width: req.Width, Height: req.Height, PixelRatio: req.PixelRatio}, h.maxPixels)
	if err != nil {
		if errors.Is(err, ErrInvalidSize) || errors.Is(err, ErrTooLarge) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Warn("export failed", "export_id", exportID, "error", err)
		http.Error(w, "render failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Store {
		stored, err := h.store.Save(data)
		if err != nil {
			slog.Error("store export", "export_id", exportID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		slog.Info("export stored", "export_id", exportID, "asset_id", stored.ID)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(stored)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.png"`, sanitizeName(req.Name)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)

	slog.Info("export complete", "export_id", exportID, "size", len(data))
}

func sanitizeName(name string) string {
	if name == "" {
		return "graph"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
