package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Ticket is the result of CreateTicket.
type Ticket struct {
	TicketID    string `json:"ticket_id"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Urgency     string `json:"urgency"`
}

// CreateTicket opens a ServiceNow incident. The integration is stubbed and
// always returns the same incident number.
type CreateTicket struct{}

// Name implements Tool.
func (CreateTicket) Name() string { return "create_servicenow_ticket" }

// Description implements Tool.
func (CreateTicket) Description() string {
	return "Creates a ServiceNow ticket for IT support issues."
}

// Parameters implements Tool.
func (CreateTicket) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"description":{"type":"string"},"urgency":{"type":"string","enum":["low","medium","high"],"default":"medium"}},"required":["description"]}`)
}

// Invoke implements Tool.
func (CreateTicket) Invoke(_ context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Description string `json:"description"`
		Urgency     string `json:"urgency"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	if in.Description == "" {
		return nil, fmt.Errorf("description is required")
	}
	if in.Urgency == "" {
		in.Urgency = "medium"
	}
	return Ticket{
		TicketID:    "INC123456",
		Status:      "created",
		Description: in.Description,
		Urgency:     in.Urgency,
	}, nil
}

// UserStatus is the result of LookupUserStatus.
type UserStatus struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	LastLogin string `json:"last_login"`
}

// LookupUserStatus reports the account status of a user. The directory
// backend is stubbed.
type LookupUserStatus struct{}

// Name implements Tool.
func (LookupUserStatus) Name() string { return "lookup_user_status" }

// Description implements Tool.
func (LookupUserStatus) Description() string {
	return "Looks up the status of a user in the system."
}

// Parameters implements Tool.
func (LookupUserStatus) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"user_id":{"type":"string"}},"required":["user_id"]}`)
}

// Invoke implements Tool.
func (LookupUserStatus) Invoke(_ context.Context, args json.RawMessage) (any, error) {
	var in struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return UserStatus{
		UserID:    in.UserID,
		Status:    "active",
		LastLogin: "2023-10-27T09:00:00Z",
	}, nil
}
