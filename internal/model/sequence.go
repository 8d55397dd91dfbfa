// internal/model/sequence.go
package model

// Channel is the closed set of touchpoint channels.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelCall     Channel = "call"
	ChannelLinkedIn Channel = "linkedin_message"
	ChannelMeeting  Channel = "meeting"
)

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelCall, ChannelLinkedIn, ChannelMeeting:
		return true
	}
	return false
}

// SequenceDefinition is a reusable, ordered template of touchpoint steps.
// Definitions are read-only from the core's point of view; the CRUD layer
// owns mutation policy.
type SequenceDefinition struct {
	ID             int            `db:"id" json:"id"`
	OrganizationID int            `db:"organization_id" json:"organization_id"`
	Name           string         `db:"name" json:"name"`
	Steps          []SequenceStep `json:"steps"`
}

// MaxDayOffset returns the largest day offset over all steps, or -1 when the
// sequence has no steps. Step array order is irrelevant here.
func (s *SequenceDefinition) MaxDayOffset() int {
	max := -1
	for _, step := range s.Steps {
		if step.DayOffset > max {
			max = step.DayOffset
		}
	}
	return max
}

// SequenceStep is one entry in a sequence: a channel and a day offset
// relative to campaign start. Offsets are absolute from start, not
// cumulative from the previous step.
type SequenceStep struct {
	ID         int     `db:"id" json:"id"`
	SequenceID int     `db:"sequence_id" json:"sequence_id"`
	StepOrder  int     `db:"step_order" json:"step_order"`
	Channel    Channel `db:"channel" json:"channel"`
	DayOffset  int     `db:"day_offset" json:"day_offset"`
	Name       string  `db:"name" json:"name,omitempty"`
	TemplateID *int    `db:"template_id" json:"template_id,omitempty"`
}
