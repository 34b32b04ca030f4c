// Package history stores a user's saved work: graphs, calculator sessions,
// chats and maps, newest first.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/geocalc/geocalc/backend-go/internal/db/dbgen"
	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/typeid"
)

var (
	ErrNotFound    = errors.New("history item not found")
	ErrInvalidType = errors.New("invalid history type")
	ErrInvalidData = errors.New("invalid history data")
)

// Type is the kind of work an item holds.
type Type string

const (
	TypeGraph      Type = "graph"
	TypeCalculator Type = "calculator"
	TypeChat       Type = "chat"
	TypeMap        Type = "map"
)

const maxNameLength = 200

// ParseType validates a type name.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeGraph, TypeCalculator, TypeChat, TypeMap:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Store is the subset of dbgen.Queries the service needs.
type Store interface {
	CreateHistoryItem(ctx context.Context, arg dbgen.CreateHistoryItemParams) (dbgen.HistoryItem, error)
	GetHistoryItem(ctx context.Context, arg dbgen.GetHistoryItemParams) (dbgen.HistoryItem, error)
	ListHistoryItems(ctx context.Context, userID string) ([]dbgen.HistoryItem, error)
	DeleteHistoryItem(ctx context.Context, arg dbgen.DeleteHistoryItemParams) (int64, error)
	ClearHistory(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	queries Store
}

func NewService(queries Store) *Service {
	return &Service{queries: queries}
}

// Item is one saved entry. Timestamp is milliseconds since the epoch.
type Item struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Add saves a new item for userID. Graph data must be a loadable snapshot.
func (s *Service) Add(ctx context.Context, userID string, typ Type, name string, data json.RawMessage) (*Item, error) {
	if _, err := ParseType(string(typ)); err != nil {
		return nil, err
	}
	if err := validateData(typ, data); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName(typ, time.Now())
	}
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	row, err := s.queries.CreateHistoryItem(ctx, dbgen.CreateHistoryItemParams{
		ID:     typeid.NewHistoryID(),
		UserID: userID,
		Type:   string(typ),
		Name:   name,
		Data:   data,
	})
	if err != nil {
		return nil, fmt.Errorf("create history item: %w", err)
	}
	return rowToItem(row), nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Item, error) {
	row, err := s.queries.GetHistoryItem(ctx, dbgen.GetHistoryItemParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get history item: %w", err)
	}
	return rowToItem(row), nil
}

// List returns the user's items, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	rows, err := s.queries.ListHistoryItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = *rowToItem(row)
	}
	return items, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	n, err := s.queries.DeleteHistoryItem(ctx, dbgen.DeleteHistoryItemParams{ID: id, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete history item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every item of userID and reports how many were removed.
func (s *Service) Clear(ctx context.Context, userID string) (int64, error) {
	n, err := s.queries.ClearHistory(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return n, nil
}

func validateData(typ Type, data json.RawMessage) error {
	if len(data) == 0 || !json.Valid(data) {
		return fmt.Errorf("%w: not JSON", ErrInvalidData)
	}
	if typ != TypeGraph {
		return nil
	}
	snap, err := document.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if _, err := snap.Decode(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	return nil
}

func defaultName(typ Type, now time.Time) string {
	title := strings.ToUpper(string(typ[:1])) + string(typ[1:])
	return fmt.Sprintf("%s %s", title, now.Format("2006-01-02 15:04"))
}

func rowToItem(row dbgen.HistoryItem) *Item {
	return &Item{
		ID:        row.ID,
		Type:      Type(row.Type),
		Name:      row.Name,
		Data:      row.Data,
		Timestamp: row.CreatedAt.Time.UnixMilli(),
	}
}
