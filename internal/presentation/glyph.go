// Package presentation maps the party enumerations to display glyphs and labels.
package presentation

import "github.com/yashgupta8707/jubilant-system/internal/domain/party"

// Fallback glyphs for values outside the enumerations
const (
	UnknownPriority   = "⚪"
	UnknownSource     = "📌"
	UnknownDealStatus = "❓"
)

var priorityGlyphs = map[party.Priority]string{
	party.PriorityLow:    "🟢",
	party.PriorityMedium: "🟡",
	party.PriorityHigh:   "🔴",
}

var sourceGlyphs = map[party.LeadSource]string{
	party.SourceWalkIn:    "🚶",
	party.SourceInstagram: "📷",
	party.SourceLinkedIn:  "💼",
	party.SourceWhatsApp:  "📱",
	party.SourceReferral:  "👥",
	party.SourceWebsite:   "🌐",
	party.SourceOther:     "📌",
}

var dealStatusGlyphs = map[party.DealStatus]string{
	party.DealInProgress: "⏳",
	party.DealWon:        "🎉",
	party.DealLost:       "❌",
	party.DealOnHold:     "⏸️",
}

var sourceLabels = map[party.LeadSource]string{
	party.SourceWalkIn:    "Walk-in",
	party.SourceInstagram: "Instagram",
	party.SourceLinkedIn:  "LinkedIn",
	party.SourceWhatsApp:  "WhatsApp",
	party.SourceReferral:  "Referral",
	party.SourceWebsite:   "Website",
	party.SourceOther:     "Other",
}

var priorityLabels = map[party.Priority]string{
	party.PriorityLow:    "Low Priority",
	party.PriorityMedium: "Medium Priority",
	party.PriorityHigh:   "High Priority",
}

var dealStatusLabels = map[party.DealStatus]string{
	party.DealInProgress: "In Progress",
	party.DealWon:        "Won",
	party.DealLost:       "Lost",
	party.DealOnHold:     "On Hold",
}

// PriorityGlyph returns the glyph for p
func PriorityGlyph(p party.Priority) string {
	return lookup(priorityGlyphs, p, UnknownPriority)
}

// SourceGlyph returns the glyph for s
func SourceGlyph(s party.LeadSource) string {
	return lookup(sourceGlyphs, s, UnknownSource)
}

// DealStatusGlyph returns the glyph for d
func DealStatusGlyph(d party.DealStatus) string {
	return lookup(dealStatusGlyphs, d, UnknownDealStatus)
}

// PriorityLabel returns "<glyph> <label>", or the raw value for unknown priorities.
func PriorityLabel(p party.Priority) string {
	return PriorityGlyph(p) + " " + lookup(priorityLabels, p, string(p))
}

// SourceLabel returns "<glyph> <label>", or the raw value for unknown sources.
func SourceLabel(s party.LeadSource) string {
	return SourceGlyph(s) + " " + lookup(sourceLabels, s, string(s))
}

// DealStatusLabel returns "<glyph> <label>", or the raw value for unknown statuses.
func DealStatusLabel(d party.DealStatus) string {
	return DealStatusGlyph(d) + " " + lookup(dealStatusLabels, d, string(d))
}

func lookup[K comparable](m map[K]string, k K, fallback string) string {
	if v, ok := m[k]; ok {
		return v
	}
	return fallback
}
