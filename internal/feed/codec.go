package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// ErrInvalidPayload is returned by Decode for anything that is not a
// well-formed event of Table.
var ErrInvalidPayload = errors.New("invalid feed payload")

// envelope is the JSON shape on the wire.
type envelope struct {
	Type            Type             `json:"type"`
	Table           string           `json:"table"`
	New             *domain.Bookmark `json:"new,omitempty"`
	Old             *domain.Bookmark `json:"old,omitempty"`
	CommitTimestamp time.Time        `json:"commit_timestamp"`
}

// Encode serializes ev for transport.
func Encode(ev Event) ([]byte, error) {
	env := envelope{
		Type:            ev.Type(),
		Table:           Table,
		CommitTimestamp: time.Now().UTC(),
	}
	switch e := ev.(type) {
	case Insert:
		env.New = &e.New
	case Update:
		env.New = &e.New
		env.Old = &e.Old
	case Delete:
		env.Old = &e.Old
	default:
		return nil, fmt.Errorf("encode: unknown event %T", ev)
	}
	return json.Marshal(env)
}

// Decode parses and validates a payload. Rows must carry the fields the
// event kind needs; anything else is rejected rather than trusted.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Table != Table {
		return nil, fmt.Errorf("%w: unexpected table %q", ErrInvalidPayload, env.Table)
	}

	switch env.Type {
	case TypeInsert:
		if err := requireRow("new", env.New); err != nil {
			return nil, err
		}
		return Insert{New: *env.New}, nil

	case TypeUpdate:
		if err := requireRow("new", env.New); err != nil {
			return nil, err
		}
		ev := Update{New: *env.New}
		if env.Old != nil {
			ev.Old = *env.Old
		}
		if ev.Old.ID == "" {
			ev.Old.ID = ev.New.ID
		}
		return ev, nil

	case TypeDelete:
		if env.Old == nil || env.Old.ID == "" {
			return nil, fmt.Errorf("%w: delete without old.id", ErrInvalidPayload)
		}
		return Delete{Old: *env.Old}, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPayload, env.Type)
	}
}

func requireRow(name string, row *domain.Bookmark) error {
	switch {
	case row == nil:
		return fmt.Errorf("%w: missing %s row", ErrInvalidPayload, name)
	case row.ID == "":
		return fmt.Errorf("%w: %s.id is empty", ErrInvalidPayload, name)
	case row.OwnerID == "":
		return fmt.Errorf("%w: %s.user_id is empty", ErrInvalidPayload, name)
	case row.URL == "" || row.Title == "":
		return fmt.Errorf("%w: %s row is incomplete", ErrInvalidPayload, name)
	}
	return nil
}
