// Package host talks to the spreadsheet host that owns the device table.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTableNotFound is returned when the host has no such table
var ErrTableNotFound = errors.New("table not found")

// API is the subset of the host document API the classifier consumes
type API interface {
	FetchTable(ctx context.Context, table string) (Snapshot, error)
	ApplyUserActions(ctx context.Context, actions []Action) error
}

// Pinger is implemented by hosts that can check reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Snapshot is a columnar table: "id" holds the row ids and every other key
// an equal-length list of cell values.
type Snapshot map[string][]any

// Action types understood by the host
const (
	ActionUpdateRecord = "UpdateRecord"
	ActionAddRecord    = "AddRecord"
)

// Action is one user action. It marshals to the host wire form
// ["UpdateRecord", table, rowId, {fields}].
type Action struct {
	Type   string
	Table  string
	RowID  *int64
	Fields map[string]any
}

// UpdateRecord builds an action setting fields on an existing row
func UpdateRecord(table string, rowID int64, fields map[string]any) Action {
	return Action{Type: ActionUpdateRecord, Table: table, RowID: &rowID, Fields: fields}
}

// AddRecord builds an action appending a row; the host assigns the id
func AddRecord(table string, fields map[string]any) Action {
	return Action{Type: ActionAddRecord, Table: table, Fields: fields}
}

func (a Action) MarshalJSON() ([]byte, error) {
	var id any
	if a.RowID != nil {
		id = *a.RowID
	}
	fields := a.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return json.Marshal([]any{a.Type, a.Table, id, fields})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("action: expected 4 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &a.Type); err != nil {
		return fmt.Errorf("action type: %w", err)
	}
	if err := json.Unmarshal(raw[1], &a.Table); err != nil {
		return fmt.Errorf("action table: %w", err)
	}
	if err := json.Unmarshal(raw[2], &a.RowID); err != nil {
		return fmt.Errorf("action row id: %w", err)
	}
	return json.Unmarshal(raw[3], &a.Fields)
}
