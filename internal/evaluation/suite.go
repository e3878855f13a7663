package evaluation

import (
	"time"
)

// Suite is an ordered collection of probe results. Aggregates are computed
// on demand from the results and never stored.
type Suite struct {
	Name      string
	Results   []Result
	Timestamp time.Time
}

func NewSuite(name string, results []Result, timestamp time.Time) *Suite {
	return &Suite{Name: name, Results: results, Timestamp: timestamp}
}

// SuccessRate is successes over total, or 0 for an empty suite.
func (s *Suite) SuccessRate() float64 {
	if len(s.Results) == 0 {
		return 0
	}
	return float64(s.SuccessCount()) / float64(len(s.Results))
}

func (s *Suite) SuccessCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Success() {
			n++
		}
	}
	return n
}

// AverageResponseTime averages the results that recorded a time and skips the rest.
func (s *Suite) AverageResponseTime() time.Duration {
	var total time.Duration
	n := 0
	for _, r := range s.Results {
		if d, ok := r.ResponseTime(); ok {
			total += d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

func (s *Suite) AverageScore() float64 {
	var scores []float64
	for _, r := range s.Results {
		if v, ok := r.Score(); ok {
			scores = append(scores, v)
		}
	}
	return Mean(scores)
}

type Summary struct {
	SuiteName           string    `json:"suite_name"`
	Timestamp           time.Time `json:"timestamp"`
	TotalTests          int       `json:"total_tests"`
	SuccessfulTests     int       `json:"successful_tests"`
	FailedTests         int       `json:"failed_tests"`
	SuccessRate         float64   `json:"success_rate"`
	AverageResponseTime float64   `json:"average_response_time"`
	AverageScore        float64   `json:"average_score"`
}

func (s *Suite) Summary() Summary {
	ok := s.SuccessCount()
	return Summary{
		SuiteName:           s.Name,
		Timestamp:           s.Timestamp,
		TotalTests:          len(s.Results),
		SuccessfulTests:     ok,
		FailedTests:         len(s.Results) - ok,
		SuccessRate:         s.SuccessRate(),
		AverageResponseTime: s.AverageResponseTime().Seconds(),
		AverageScore:        s.AverageScore(),
	}
}
