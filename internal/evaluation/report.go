package evaluation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "lead-orchestrator/internal/common/errors"
)

const (
	DefaultOutputDir = "evaluation_results"
	timestampLayout  = "20060102_150405"
)

// SuiteReport is the on-disk form of a suite.
type SuiteReport struct {
	Summary Summary  `json:"summary"`
	Results []Result `json:"results"`
}

type OverallStats struct {
	TotalSuites      int `json:"total_suites"`
	SuccessfulSuites int `json:"successful_suites"`
}

// RunSummary is the cross-suite summary written after a full evaluation.
type RunSummary struct {
	RunID          string             `json:"run_id"`
	Timestamp      time.Time          `json:"timestamp"`
	OverallStats   OverallStats       `json:"overall_stats"`
	SuiteSummaries map[string]Summary `json:"suite_summaries"`
}

// NewRunSummary keys suite summaries by suite kind. A suite counts as
// successful when its success rate is strictly above passRate.
func NewRunSummary(runID string, ts time.Time, suites map[string]*Suite, passRate float64) RunSummary {
	out := RunSummary{
		RunID:          runID,
		Timestamp:      ts,
		SuiteSummaries: make(map[string]Summary, len(suites)),
	}
	for kind, s := range suites {
		sum := s.Summary()
		out.SuiteSummaries[kind] = sum
		if sum.SuccessRate > passRate {
			out.OverallStats.SuccessfulSuites++
		}
	}
	out.OverallStats.TotalSuites = len(suites)
	return out
}

type ReportWriter struct {
	dir string
}

func NewReportWriter(dir string) *ReportWriter {
	if dir == "" {
		dir = DefaultOutputDir
	}
	return &ReportWriter{dir: dir}
}

func (w *ReportWriter) Dir() string { return w.dir }

// SuiteFilename is <snake_case suite name>_<YYYYmmdd_HHMMSS>.json.
func SuiteFilename(s *Suite) string {
	return snake(s.Name) + "_" + s.Timestamp.Format(timestampLayout) + ".json"
}

func SummaryFilename(ts time.Time) string {
	return "evaluation_summary_" + ts.Format(timestampLayout) + ".json"
}

// SaveSuite writes the suite report and returns the file path. An empty
// filename selects SuiteFilename.
func (w *ReportWriter) SaveSuite(s *Suite, filename string) (string, error) {
	if filename == "" {
		filename = SuiteFilename(s)
	}
	results := s.Results
	if results == nil {
		results = []Result{}
	}
	return w.write(filename, SuiteReport{Summary: s.Summary(), Results: results})
}

func (w *ReportWriter) SaveSummary(sum RunSummary) (string, error) {
	return w.write(SummaryFilename(sum.Timestamp), sum)
}

// write encodes v into dir/filename through a temp file in the same
// directory and a rename, so readers never see a partial report.
func (w *ReportWriter) write(filename string, v interface{}) (string, error) {
	path := filepath.Join(w.dir, filename)
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", apperrors.NewReportWriteError(path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", apperrors.NewReportWriteError(path, err)
	}

	tmp, err := os.CreateTemp(w.dir, "."+filename+".*.tmp")
	if err != nil {
		return "", apperrors.NewReportWriteError(path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", apperrors.NewReportWriteError(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", apperrors.NewReportWriteError(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", apperrors.NewReportWriteError(path, err)
	}
	return path, nil
}

// LoadSuiteReport reads a report written by SaveSuite.
func LoadSuiteReport(path string) (*SuiteReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rep SuiteReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func snake(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
