package moneybird

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sadopc/timebird/internal/model"
)

type user struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListUsers returns the users of the administration in creds.
func (c *Client) ListUsers(ctx context.Context, creds model.Credentials) ([]model.User, error) {
	r, err := c.getRequest(ctx, creds, "users.json", nil)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var wire []user
	if err := json.Unmarshal(r.Body, &wire); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	users := make([]model.User, 0, len(wire))
	for _, u := range wire {
		users = append(users, model.User{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return users, nil
}
