package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/geocalc/geocalc/backend-go/internal/auth"
	"github.com/geocalc/geocalc/backend-go/internal/db/dbgen"
	"github.com/geocalc/geocalc/backend-go/internal/document"
)

type fakeStore struct {
	now   time.Time
	items []dbgen.HistoryItem
}

func (f *fakeStore) CreateHistoryItem(_ context.Context, arg dbgen.CreateHistoryItemParams) (dbgen.HistoryItem, error) {
	f.now = f.now.Add(time.Second)
	row := dbgen.HistoryItem{
		ID:        arg.ID,
		UserID:    arg.UserID,
		Type:      arg.Type,
		Name:      arg.Name,
		Data:      arg.Data,
		CreatedAt: pgtype.Timestamptz{Time: f.now, Valid: true},
	}
	f.items = append(f.items, row)
	return row, nil
}

func (f *fakeStore) GetHistoryItem(_ context.Context, arg dbgen.GetHistoryItemParams) (dbgen.HistoryItem, error) {
	for _, it := range f.items {
		if it.ID == arg.ID && it.UserID == arg.UserID {
			return it, nil
		}
	}
	return dbgen.HistoryItem{}, pgx.ErrNoRows
}

func (f *fakeStore) ListHistoryItems(_ context.Context, userID string) ([]dbgen.HistoryItem, error) {
	var out []dbgen.HistoryItem
	for _, it := range f.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out, nil
}

func (f *fakeStore) DeleteHistoryItem(_ context.Context, arg dbgen.DeleteHistoryItemParams) (int64, error) {
	for i, it := range f.items {
		if it.ID == arg.ID && it.UserID == arg.UserID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) ClearHistory(_ context.Context, userID string) (int64, error) {
	var kept []dbgen.HistoryItem
	for _, it := range f.items {
		if it.UserID != userID {
			kept = append(kept, it)
		}
	}
	n := int64(len(f.items) - len(kept))
	f.items = kept
	return n, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func sampleGraph(t *testing.T) json.RawMessage {
	t.Helper()
	snap, err := document.NewSampleSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestServiceLifecycle(t *testing.T) {
	s := NewService(newFakeStore())
	ctx := context.Background()

	first, err := s.Add(ctx, "user_a", TypeGraph, "Parabola", sampleGraph(t))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Add(ctx, "user_a", TypeCalculator, "", json.RawMessage(`{"display":"2+2"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(second.Name, "Calculator ") {
		t.Errorf("default name = %q", second.Name)
	}
	if _, err := s.Add(ctx, "user_b", TypeChat, "other", json.RawMessage(`[]`)); err != nil {
		t.Fatal(err)
	}

	items, err := s.List(ctx, "user_a")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
		t.Fatalf("list = %+v, want newest first", items)
	}
	if items[0].Timestamp <= items[1].Timestamp {
		t.Errorf("timestamps = %d, %d", items[0].Timestamp, items[1].Timestamp)
	}

	if _, err := s.Get(ctx, "user_b", first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user get: %v", err)
	}
	if err := s.Delete(ctx, "user_a", first.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "user_a", first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}

	n, err := s.Clear(ctx, "user_a")
	if err != nil || n != 1 {
		t.Errorf("Clear = %d, %v", n, err)
	}
	if items, _ := s.List(ctx, "user_b"); len(items) != 1 {
		t.Errorf("other user's items = %d", len(items))
	}
}

func TestAddValidates(t *testing.T) {
	s := NewService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name string
		typ  Type
		data string
		want error
	}{
		{"unknown type", "notes", `{}`, ErrInvalidType},
		{"empty data", TypeChat, ``, ErrInvalidData},
		{"not json", TypeMap, `{`, ErrInvalidData},
		{"graph with unknown object", TypeGraph, `{"objects":[{"id":"o","type":"circle","data":{}}]}`, ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Add(ctx, "user_a", tt.typ, "x", json.RawMessage(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	h := NewHandler(NewService(newFakeStore()))

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), "user_a")))
		})
	})
	api.HandleFunc("/history", h.List).Methods("GET")
	api.HandleFunc("/history", h.Add).Methods("POST")
	api.HandleFunc("/history", h.Clear).Methods("DELETE")
	api.HandleFunc("/history/{id}", h.Get).Methods("GET")
	api.HandleFunc("/history/{id}", h.Delete).Methods("DELETE")

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
		return rec
	}

	rec := do("POST", "/api/history", addRequest{Type: "graph", Name: "Sample", Data: sampleGraph(t)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST = %d: %s", rec.Code, rec.Body.String())
	}
	var item Item
	json.NewDecoder(rec.Body).Decode(&item)

	if rec := do("POST", "/api/history", addRequest{Type: "video", Data: json.RawMessage(`{}`)}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad type = %d", rec.Code)
	}

	rec = do("GET", "/api/history/"+item.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET item = %d", rec.Code)
	}
	var got Item
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Name != "Sample" || got.Type != TypeGraph {
		t.Errorf("item = %+v", got)
	}

	if rec := do("DELETE", "/api/history/"+item.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE item = %d", rec.Code)
	}
	if rec := do("GET", "/api/history/"+item.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET deleted = %d", rec.Code)
	}

	rec = do("DELETE", "/api/history", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"deleted":0`) {
		t.Errorf("clear = %d %s", rec.Code, rec.Body.String())
	}
}
