package dbgen

import (
	"context"
)

const createHistoryItem = `
INSERT INTO history_items (id, user_id, type, name, data)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, type, name, data, created_at
`

type CreateHistoryItemParams struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Data   []byte `json:"data"`
}

func (q *Queries) CreateHistoryItem(ctx context.Context, arg CreateHistoryItemParams) (HistoryItem, error) {
	row := q.db.QueryRow(ctx, createHistoryItem, arg.ID, arg.UserID, arg.Type, arg.Name, arg.Data)
	var i HistoryItem
	err := row.Scan(&i.ID, &i.UserID, &i.Type, &i.Name, &i.Data, &i.CreatedAt)
	return i, err
}

const getHistoryItem = `
SELECT id, user_id, type, name, data, created_at FROM history_items
WHERE id = $1 AND user_id = $2
`

type GetHistoryItemParams struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

func (q *Queries) GetHistoryItem(ctx context.Context, arg GetHistoryItemParams) (HistoryItem, error) {
	row := q.db.QueryRow(ctx, getHistoryItem, arg.ID, arg.UserID)
	var i HistoryItem
	err := row.Scan(&i.ID, &i.UserID, &i.Type, &i.Name, &i.Data, &i.CreatedAt)
	return i, err
}

const listHistoryItems = `
SELECT id, user_id, type, name, data, created_at FROM history_items
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListHistoryItems(ctx context.Context, userID string) ([]HistoryItem, error) {
	rows, err := q.db.Query(ctx, listHistoryItems, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HistoryItem
	for rows.Next() {
		var i HistoryItem
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.Name, &i.Data, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteHistoryItem = `
DELETE FROM history_items
WHERE id = $1 AND user_id = $2
`

type DeleteHistoryItemParams struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

func (q *Queries) DeleteHistoryItem(ctx context.Context, arg DeleteHistoryItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteHistoryItem, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const clearHistory = `
DELETE FROM history_items
WHERE user_id = $1
`

func (q *Queries) ClearHistory(ctx context.Context, userID string) (int64, error) {
	result, err := q.db.Exec(ctx, clearHistory, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
