package qualifylead

import "lead-orchestrator/internal/models"

// Input holds either an ad-hoc lead in Request or the id of a stored lead.
// LeadID wins when both are set.
type Input struct {
	Request *models.QualificationRequest `json:"request,omitempty"`
	Context *models.QualificationContext `json:"context,omitempty"`
	LeadID  *int64                       `json:"leadId,omitempty"`
}

type Output struct {
	Qualification *models.QualificationResult `json:"qualification"`
	LeadID        *int64                      `json:"leadId,omitempty"`
	PreviousScore *int                        `json:"previousScore,omitempty"`
	NewScore      *int                        `json:"newScore,omitempty"`
}
