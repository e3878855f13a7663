package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/evaluation"
)

var evaluationMessages = map[string]string{
	evaluation.KindAll:                    "Full evaluation completed",
	evaluation.KindLeadQualification:      "Lead qualification evaluation completed",
	evaluation.KindMessagePersonalization: "Message personalization evaluation completed",
}

func (s *Server) evaluate(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Evaluator == nil {
			s.fail(c, notConfigured("evaluation"))
			return
		}
		report, err := s.deps.Evaluator.Run(c.Request.Context(), kind)
		if err != nil {
			s.fail(c, err)
			return
		}

		if kind != evaluation.KindAll {
			summary, found := report.Summary.SuiteSummaries[kind]
			if !found {
				s.fail(c, apperrors.NewServiceFailureError(fmt.Errorf("evaluation suite %s did not complete", kind)))
				return
			}
			success(c, evaluationMessages[kind], summary)
			return
		}

		success(c, evaluationMessages[kind], gin.H{
			"evaluation_results":   report.Summary.SuiteSummaries,
			"overall_success_rate": report.OverallSuccessRate(),
			"total_tests":          report.TotalTests(),
			"results_saved_to":     s.deps.Evaluator.OutputDir(),
			"report_files":         report.ReportFiles,
			"run_id":               report.Summary.RunID,
		})
	}
}

func (s *Server) latestEvaluation(c *gin.Context) {
	if s.deps.Latest == nil {
		s.fail(c, notConfigured("evaluation index"))
		return
	}
	run, err := s.deps.Latest.LatestRun(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	suites, err := s.deps.Latest.LatestSuites(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if run == nil && len(suites) == 0 {
		s.fail(c, apperrors.NewResourceNotFoundError("Evaluation run", "latest"))
		return
	}
	success(c, "", gin.H{"run": run, "suites": suites})
}
