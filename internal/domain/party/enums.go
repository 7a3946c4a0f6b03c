package party

import "fmt"

// LeadSource is where a party was acquired
type LeadSource string

const (
	SourceWalkIn    LeadSource = "walk-in"
	SourceInstagram LeadSource = "instagram"
	SourceLinkedIn  LeadSource = "linkedin"
	SourceWhatsApp  LeadSource = "whatsapp"
	SourceReferral  LeadSource = "referral"
	SourceWebsite   LeadSource = "website"
	SourceOther     LeadSource = "other"
)

// LeadSources lists every lead source in display order
func LeadSources() []LeadSource {
	return []LeadSource{
		SourceWalkIn, SourceInstagram, SourceLinkedIn, SourceWhatsApp,
		SourceReferral, SourceWebsite, SourceOther,
	}
}

// Valid reports whether s is a known lead source
func (s LeadSource) Valid() bool {
	for _, v := range LeadSources() {
		if s == v {
			return true
		}
	}
	return false
}

// Priority is the follow-up priority of a party
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from lowest to highest
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DealStatus is the sales pipeline state of a party
type DealStatus string

const (
	DealInProgress DealStatus = "in_progress"
	DealWon        DealStatus = "won"
	DealLost       DealStatus = "lost"
	DealOnHold     DealStatus = "on_hold"
)

// DealStatuses lists every deal status
func DealStatuses() []DealStatus {
	return []DealStatus{DealInProgress, DealWon, DealLost, DealOnHold}
}

// Valid reports whether d is a known deal status
func (d DealStatus) Valid() bool {
	switch d {
	case DealInProgress, DealWon, DealLost, DealOnHold:
		return true
	}
	return false
}

// Defaults applied when a value is unset
const (
	DefaultSource     = SourceWalkIn
	DefaultPriority   = PriorityMedium
	DefaultDealStatus = DealInProgress
)

// ParseLeadSource converts s into a LeadSource. An empty string yields the default.
func ParseLeadSource(s string) (LeadSource, error) {
	if s == "" {
		return DefaultSource, nil
	}
	if v := LeadSource(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("party: invalid lead source %q", s)
}

// ParsePriority converts s into a Priority. An empty string yields the default.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return DefaultPriority, nil
	}
	if v := Priority(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("party: invalid priority %q", s)
}

// ParseDealStatus converts s into a DealStatus. An empty string yields the default.
func ParseDealStatus(s string) (DealStatus, error) {
	if s == "" {
		return DefaultDealStatus, nil
	}
	if v := DealStatus(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("party: invalid deal status %q", s)
}
