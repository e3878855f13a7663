package personalizemessage

import "lead-orchestrator/internal/models"

// Input drafts for an ad-hoc Request, or for the stored lead LeadID using
// CampaignType and MessageTone. Send emails the best variant of a stored lead.
type Input struct {
	Request      *models.PersonalizationRequest `json:"request,omitempty"`
	Context      *models.PersonalizationContext `json:"context,omitempty"`
	LeadID       *int64                         `json:"leadId,omitempty"`
	CampaignType string                         `json:"campaignType,omitempty"`
	MessageTone  string                         `json:"messageTone,omitempty"`
	Send         bool                           `json:"send,omitempty"`
}

type Output struct {
	Personalization *models.PersonalizationResult `json:"personalization"`
	LeadID          *int64                        `json:"leadId,omitempty"`
	CampaignType    string                        `json:"campaignType,omitempty"`
	SentMessageID   string                        `json:"sentMessageId,omitempty"`
}
