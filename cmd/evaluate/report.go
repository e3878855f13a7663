package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"lead-orchestrator/internal/evaluation"
)

const rule = "============================================================"

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRunReport(w io.Writer, report *evaluation.RunReport, outputDir string) {
	printSummary(w, report.Summary)
	fmt.Fprintf(w, "\nOverall Success Rate: %.1f%%\n", report.OverallSuccessRate()*100)
	fmt.Fprintf(w, "Total Tests: %d\n", report.TotalTests())
	fmt.Fprintf(w, "Results saved to: %s\n", outputDir)
	for _, f := range report.ReportFiles {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

func printSummary(w io.Writer, sum evaluation.RunSummary) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "EVALUATION SUMMARY REPORT")
	fmt.Fprintf(w, "Run: %s  (%s)\n", sum.RunID, sum.Timestamp.Format(time.RFC3339))
	fmt.Fprintln(w, rule)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUITE\tTESTS\tPASSED\tSUCCESS\tAVG TIME\tAVG SCORE")
	for _, kind := range sortedKeys(sum.SuiteSummaries) {
		s := sum.SuiteSummaries[kind]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\t%.2fs\t%.1f\n",
			s.SuiteName, s.TotalTests, s.SuccessfulTests, s.SuccessRate*100, s.AverageResponseTime, s.AverageScore)
	}
	tw.Flush()

	st := sum.OverallStats
	fmt.Fprintf(w, "\nTest Suite Success Rate: %d/%d\n", st.SuccessfulSuites, st.TotalSuites)
}

func printComprehensive(w io.Writer, report *evaluation.ComprehensiveReport) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "COMPREHENSIVE EVALUATION")
	fmt.Fprintln(w, rule)

	for _, kind := range sortedKeys(report.Outcomes) {
		o := report.Outcomes[kind]
		name := title(kind)
		if o.Error != "" {
			fmt.Fprintf(w, "FAILED  %s: %s\n", name, o.Error)
			continue
		}
		fmt.Fprintf(w, "OK      %s: %.1f%% success\n", name, deref(o.SuccessRate)*100)
		fmt.Fprintf(w, "        %d tests, %.2fs avg response time\n", derefInt(o.TotalTests), deref(o.AvgResponseTime))
	}

	if s := report.Suite; s != nil {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Overall Success Rate: %.1f%%\n", s.SuccessRate()*100)
		fmt.Fprintf(w, "Average Response Time: %.2fs\n", s.AverageResponseTime().Seconds())
		fmt.Fprintf(w, "Total Tests: %d\n", len(s.Results))
	}
	for _, f := range report.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

// runHealthy applies the policy to the mean success rate and the mean of the
// per-suite average response times.
func runHealthy(report *evaluation.RunReport, policy evaluation.Policy) bool {
	if len(report.Summary.SuiteSummaries) == 0 {
		return false
	}
	var latency float64
	for _, s := range report.Summary.SuiteSummaries {
		latency += s.AverageResponseTime
	}
	latency /= float64(len(report.Summary.SuiteSummaries))
	return policy.Healthy(report.OverallSuccessRate(), time.Duration(latency*float64(time.Second)))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func title(kind string) string {
	words := strings.Split(kind, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
