package tasks

import (
	"context"
	"encoding/json"
	"fmt"
)

// ApplyOffline replays one queued offline mutation against the store. The
// payload is the JSON the client recorded when the mutation was first
// attempted. Satisfies the offline queue's handler contract.
func (s *Store) ApplyOffline(ctx context.Context, userID int, kind string, payload []byte) error {
	switch kind {
	case "insert":
		var t Task
		if err := json.Unmarshal(payload, &t); err != nil {
			return fmt.Errorf("decode insert payload: %w", err)
		}
		t.UserID = userID
		_, err := s.Insert(ctx, t)
		return err

	case "update":
		var t Task
		if err := json.Unmarshal(payload, &t); err != nil {
			return fmt.Errorf("decode update payload: %w", err)
		}
		t.UserID = userID
		return s.Update(ctx, t)

	case "delete":
		var body struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return fmt.Errorf("decode delete payload: %w", err)
		}
		return s.Delete(ctx, userID, body.ID)

	default:
		return fmt.Errorf("unknown operation kind %q", kind)
	}
}
