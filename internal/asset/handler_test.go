package asset

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestStoreSaveServeDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	saved, err := store.Save(pngBytes(t, 7, 3))
	if err != nil {
		t.Fatal(err)
	}
	if saved.Width != 7 || saved.Height != 3 {
		t.Errorf("size = %dx%d", saved.Width, saved.Height)
	}
	if !strings.HasPrefix(saved.ID, "asset_") || saved.URL != "/assets/"+saved.ID+".png" {
		t.Errorf("stored = %+v", saved)
	}

	rec := httptest.NewRecorder()
	store.Serve().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, saved.URL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d", saved.URL, rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("Cache-Control = %q", cc)
	}

	if err := store.Delete(saved.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestStoreRejects(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save([]byte("not a png")); !errors.Is(err, ErrInvalidPNG) {
		t.Errorf("Save(garbage) = %v", err)
	}
	if _, err := store.Path("../../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Path(traversal) = %v", err)
	}
}

func TestHandleDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	saved, err := store.Save(pngBytes(t, 1, 1))
	if err != nil {
		t.Fatal(err)
	}

	r := mux.NewRouter()
	r.HandleFunc("/assets/{id}", store.HandleDelete).Methods(http.MethodDelete)

	for _, want := range []int{http.StatusNoContent, http.StatusNotFound} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/assets/"+saved.ID, nil))
		if rec.Code != want {
			t.Errorf("DELETE = %d, want %d", rec.Code, want)
		}
	}
}
