package letsencrypt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrymomot/acmekit/core/authenticator"
)

// Event actions.
const (
	ActionIssue  = "issue"
	ActionRenew  = "renew"
	ActionRevoke = "revoke"
)

// Event is a JSON request to run one action, as delivered by schedulers and
// queue triggers:
//
//	{"action": "issue", "domains": ["example.com", "www.example.com"],
//	 "webhook": {"url": "https://hooks.example.com", "body": {"env": "prod"}}}
type Event struct {
	Action  string        `json:"action"`
	Domain  string        `json:"domain,omitempty"`
	Domains []string      `json:"domains,omitempty"`
	Webhook *EventWebhook `json:"webhook,omitempty"`
}

// EventWebhook is where the batch outcome of an event is reported.
type EventWebhook struct {
	URL  string         `json:"url"`
	Body map[string]any `json:"body,omitempty"`
}

// ParseEvent decodes and validates an event.
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Validate checks the action and that issue and revoke name a domain.
func (e *Event) Validate() error {
	e.Action = strings.ToLower(strings.TrimSpace(e.Action))
	switch e.Action {
	case ActionIssue, ActionRevoke:
		if len(e.Names()) == 0 {
			return fmt.Errorf("%w: %s requires a domain", ErrInvalidEvent, e.Action)
		}
	case ActionRenew:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
	}
	if e.Webhook != nil && strings.TrimSpace(e.Webhook.URL) == "" {
		return fmt.Errorf("%w: webhook url is empty", ErrInvalidEvent)
	}
	return nil
}

// Names returns Domains, or Domain when Domains is empty.
func (e *Event) Names() []string {
	var names []string
	for _, d := range e.Domains {
		if d = strings.TrimSpace(d); d != "" {
			names = append(names, d)
		}
	}
	if len(names) == 0 {
		if d := strings.TrimSpace(e.Domain); d != "" {
			names = append(names, d)
		}
	}
	return names
}

// HandleEvent runs the event action as a batch.
//
// issue orders one certificate covering every name. renew renews the named
// certificates, or every certificate due for renewal when no name is given.
// revoke revokes each named certificate.
func (m *Manager) HandleEvent(ctx context.Context, ev *Event, auths []authenticator.Authenticator) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	names := ev.Names()
	switch ev.Action {
	case ActionIssue:
		return m.IssueAll(ctx, [][]string{names}, auths)
	case ActionRenew:
		if len(names) == 0 {
			return m.RenewDue(ctx, auths)
		}
		return m.RenewNames(ctx, names, auths)
	default:
		return m.RevokeAll(ctx, names)
	}
}
