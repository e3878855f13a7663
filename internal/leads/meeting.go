package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lead-orchestrator/internal/models"
)

const (
	slotLayout          = "2006-01-02T15:04:05"
	slotFormattedLayout = "Monday, January 02 at 03:04 PM"
	discoveryCallBelow  = 50
)

type MeetingSlot struct {
	Datetime    string `json:"datetime"`
	Formatted   string `json:"formatted"`
	Duration    string `json:"duration"`
	MeetingType string `json:"meeting_type"`
}

type MeetingProposal struct {
	LeadID         int64         `json:"lead_id"`
	LeadName       string        `json:"lead_name"`
	SuggestedTimes []MeetingSlot `json:"suggested_times"`
	MeetingLink    string        `json:"meeting_link"`
	Instructions   string        `json:"instructions"`
}

// CoordinateMeeting proposes meeting slots on the coming days and records the
// request as a note on the lead.
func (s *Service) CoordinateMeeting(ctx context.Context, id int64) (*MeetingProposal, error) {
	lead, err := s.deps.Repo.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	slots := SuggestSlots(s.now(), lead.Score)

	note := fmt.Sprintf("Meeting coordination requested - suggested %d time slots", len(slots))
	if _, err := s.deps.Repo.AddInteraction(ctx, models.InteractionCreate{
		LeadID: id, InteractionType: models.InteractionNote, Content: &note,
	}); err != nil {
		return nil, err
	}

	return &MeetingProposal{
		LeadID:         id,
		LeadName:       lead.Name,
		SuggestedTimes: slots,
		MeetingLink:    meetingLinkBase + strings.ReplaceAll(strings.ToLower(lead.Name), " ", "-"),
		Instructions:   "Please select your preferred time slot and we'll send a calendar invite.",
	}, nil
}

// SuggestSlots returns five slots starting the day after now at 09:00, with
// the hour stepping by two and wrapping every three slots.
func SuggestSlots(now time.Time, score int) []MeetingSlot {
	base := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
	meetingType := "demo"
	if score < discoveryCallBelow {
		meetingType = "discovery_call"
	}

	slots := make([]MeetingSlot, meetingSlots)
	for i := range slots {
		t := base.AddDate(0, 0, i+1).Add(time.Duration(i%3*2) * time.Hour)
		slots[i] = MeetingSlot{
			Datetime:    t.Format(slotLayout),
			Formatted:   t.Format(slotFormattedLayout),
			Duration:    "30 minutes",
			MeetingType: meetingType,
		}
	}
	return slots
}
