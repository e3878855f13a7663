package runevaluation

import "lead-orchestrator/internal/evaluation"

type Input struct {
	Suite string `json:"suite,omitempty"`
}

type Output struct {
	RunID              string                        `json:"runId"`
	Summaries          map[string]evaluation.Summary `json:"summaries"`
	OverallSuccessRate float64                       `json:"overallSuccessRate"`
	TotalTests         int                           `json:"totalTests"`
	ReportFiles        []string                      `json:"reportFiles"`
}
