package queue

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ActionType identifies the kind of queued mutation
type ActionType string

const (
	ActionCreateNews      ActionType = "CREATE_NEWS"
	ActionUpdateClub      ActionType = "UPDATE_CLUB"
	ActionSubscribeClub   ActionType = "SUBSCRIBE_CLUB"
	ActionUnsubscribeClub ActionType = "UNSUBSCRIBE_CLUB"
)

// Label returns the human-readable name used in sync notifications
func (t ActionType) Label() string {
	switch t {
	case ActionCreateNews:
		return "News post"
	case ActionUpdateClub:
		return "Club update"
	case ActionSubscribeClub:
		return "Club subscription"
	case ActionUnsubscribeClub:
		return "Club unsubscription"
	default:
		return string(t)
	}
}

// Payload is the typed body of a PendingAction. Each ActionType has exactly
// one payload type.
type Payload interface {
	ActionType() ActionType
	// Detail is the title or name shown in notifications; may be empty
	Detail() string
}

var validate = validator.New()

// CreateNewsPayload posts a news item
type CreateNewsPayload struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty" validate:"omitempty,oneof=event announcement achievement"`
	Author      string `json:"author,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

func (CreateNewsPayload) ActionType() ActionType { return ActionCreateNews }
func (p CreateNewsPayload) Detail() string      { return p.Title }

// UpdateClubPayload posts an update on a club's feed
type UpdateClubPayload struct {
	ClubID   string `json:"clubId" validate:"required"`
	ClubName string `json:"clubName,omitempty"`
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content,omitempty"`
	// UpdateType is one of event, announcement, achievement
	UpdateType string `json:"type,omitempty" validate:"omitempty,oneof=event announcement achievement"`
}

func (UpdateClubPayload) ActionType() ActionType { return ActionUpdateClub }
func (p UpdateClubPayload) Detail() string      { return p.Title }

// ClubRef names the club of a subscription change
type ClubRef struct {
	ClubID   string `json:"clubId" validate:"required"`
	ClubName string `json:"clubName,omitempty"`
}

// SubscribeClubPayload subscribes the user to a club
type SubscribeClubPayload struct {
	ClubRef
}

func (SubscribeClubPayload) ActionType() ActionType { return ActionSubscribeClub }
func (p SubscribeClubPayload) Detail() string      { return p.ClubName }

// UnsubscribeClubPayload unsubscribes the user from a club
type UnsubscribeClubPayload struct {
	ClubRef
}

func (UnsubscribeClubPayload) ActionType() ActionType { return ActionUnsubscribeClub }
func (p UnsubscribeClubPayload) Detail() string      { return p.ClubName }

// ValidatePayload checks that p is one of the known payload types, by value
// or by pointer, and checks its field constraints
func ValidatePayload(p Payload) error {
	v, err := valuePayload(p)
	if err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return ErrInvalidPayload(err)
	}
	return nil
}

// valuePayload returns p in value form, the form queued actions carry.
// Nil pointers and payload types other than the four known ones are
// rejected.
func valuePayload(p Payload) (Payload, error) {
	switch v := p.(type) {
	case CreateNewsPayload, UpdateClubPayload, SubscribeClubPayload, UnsubscribeClubPayload:
		return v, nil
	case *CreateNewsPayload:
		if v != nil {
			return *v, nil
		}
	case *UpdateClubPayload:
		if v != nil {
			return *v, nil
		}
	case *SubscribeClubPayload:
		if v != nil {
			return *v, nil
		}
	case *UnsubscribeClubPayload:
		if v != nil {
			return *v, nil
		}
	case nil:
	default:
		return nil, ErrInvalidPayload(fmt.Errorf("unsupported payload type %T", p))
	}
	return nil, ErrInvalidPayload(fmt.Errorf("payload is nil"))
}

// PendingAction is a queued mutation awaiting replay
type PendingAction struct {
	// ID is {type}_{timestamp}, unique within the queue
	ID   string     `json:"id"`
	Type ActionType `json:"type"`
	// Timestamp is the creation time in epoch milliseconds
	Timestamp  int64   `json:"timestamp"`
	Payload    Payload `json:"payload"`
	RetryCount int     `json:"retryCount"`
}

// Detail returns the payload detail, or "Item" when there is none
func (a PendingAction) Detail() string {
	if a.Payload != nil {
		if d := a.Payload.Detail(); d != "" {
			return d
		}
	}
	return "Item"
}

// UnmarshalJSON decodes the payload according to the action type
func (a *PendingAction) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         string          `json:"id"`
		Type       ActionType      `json:"type"`
		Timestamp  int64           `json:"timestamp"`
		Payload    json.RawMessage `json:"payload"`
		RetryCount int             `json:"retryCount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	payload, err := decodePayload(raw.Type, raw.Payload)
	if err != nil {
		return err
	}
	*a = PendingAction{
		ID:         raw.ID,
		Type:       raw.Type,
		Timestamp:  raw.Timestamp,
		Payload:    payload,
		RetryCount: raw.RetryCount,
	}
	return nil
}

func decodePayload(t ActionType, raw json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch t {
	case ActionCreateNews:
		var v CreateNewsPayload
		err = unmarshalPayload(raw, &v)
		p = v
	case ActionUpdateClub:
		var v UpdateClubPayload
		err = unmarshalPayload(raw, &v)
		p = v
	case ActionSubscribeClub:
		var v SubscribeClubPayload
		err = unmarshalPayload(raw, &v)
		p = v
	case ActionUnsubscribeClub:
		var v UnsubscribeClubPayload
		err = unmarshalPayload(raw, &v)
		p = v
	default:
		return nil, ErrUnknownActionType(t)
	}
	if err != nil {
		return nil, ErrInvalidPayload(err)
	}
	return p, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
