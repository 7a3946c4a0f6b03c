// Package party models CRM clients ("parties"), their classification
// enumerations and the request bodies of the party endpoints.
package party

import (
	"encoding/json"
	"strings"
	"time"
)

// Record is a party as returned by the backend.
type Record struct {
	ID           string     `json:"_id" yaml:"id"`
	PartyID      string     `json:"partyId,omitempty" yaml:"party_id,omitempty"`
	Name         string     `json:"name" yaml:"name"`
	Phone        string     `json:"phone" yaml:"phone"`
	Address      string     `json:"address" yaml:"address"`
	Email        string     `json:"email,omitempty" yaml:"email,omitempty"`
	Source       LeadSource `json:"source,omitempty" yaml:"source,omitempty"`
	Priority     Priority   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Requirements string     `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	DealStatus   DealStatus `json:"dealStatus,omitempty" yaml:"deal_status,omitempty"`
	Tags         TagSet     `json:"tags" yaml:"tags"`
	Comments     []Comment  `json:"comments,omitempty" yaml:"comments,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// UnmarshalJSON decodes a record, accepting id as an alternative to _id.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = aux.AltID
	}
	return nil
}

// WithDefaults returns r with unset classification fields set to their defaults
func (r Record) WithDefaults() Record {
	if r.Source == "" {
		r.Source = DefaultSource
	}
	if r.Priority == "" {
		r.Priority = DefaultPriority
	}
	if r.DealStatus == "" {
		r.DealStatus = DefaultDealStatus
	}
	r.Tags = r.Tags.Clone()
	return r
}

// Comment is a note attached to a party, including change comments recorded on update.
type Comment struct {
	ID        string    `json:"_id,omitempty" yaml:"id,omitempty"`
	Text      string    `json:"text" yaml:"text"`
	CreatedBy string    `json:"createdBy,omitempty" yaml:"created_by,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// CommentRequest is the body of POST /parties/{id}/comments
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// CreateRequest is the body of POST /parties. Empty optional fields are omitted.
type CreateRequest struct {
	Name           string     `json:"name" validate:"required"`
	Phone          string     `json:"phone" validate:"required"`
	Address        string     `json:"address" validate:"required"`
	Email          string     `json:"email,omitempty" validate:"omitempty,email"`
	Source         LeadSource `json:"source" validate:"oneof=walk-in instagram linkedin whatsapp referral website other"`
	Priority       Priority   `json:"priority" validate:"oneof=low medium high"`
	Requirements   string     `json:"requirements"`
	DealStatus     DealStatus `json:"dealStatus" validate:"oneof=in_progress won lost on_hold"`
	Tags           TagSet     `json:"tags"`
	InitialComment string     `json:"initialComment,omitempty"`
}

// UpdateRequest is the body of PUT /parties/{id}: the full field set plus an optional change comment.
type UpdateRequest struct {
	Name          string     `json:"name" validate:"required"`
	Phone         string     `json:"phone" validate:"required"`
	Address       string     `json:"address" validate:"required"`
	Email         string     `json:"email" validate:"omitempty,email"`
	Source        LeadSource `json:"source" validate:"oneof=walk-in instagram linkedin whatsapp referral website other"`
	Priority      Priority   `json:"priority" validate:"oneof=low medium high"`
	Requirements  string     `json:"requirements"`
	DealStatus    DealStatus `json:"dealStatus" validate:"oneof=in_progress won lost on_hold"`
	Tags          TagSet     `json:"tags"`
	ChangeComment string     `json:"changeComment,omitempty"`
}

// Clean trims string fields and applies the classification defaults
func (c CreateRequest) Clean() CreateRequest {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Email = strings.TrimSpace(c.Email)
	c.Requirements = strings.TrimSpace(c.Requirements)
	c.InitialComment = strings.TrimSpace(c.InitialComment)
	if c.Source == "" {
		c.Source = DefaultSource
	}
	if c.Priority == "" {
		c.Priority = DefaultPriority
	}
	if c.DealStatus == "" {
		c.DealStatus = DefaultDealStatus
	}
	c.Tags = c.Tags.Clone()
	return c
}
