// Package evaluation drives the qualification and personalization services
// with scripted probes, scores the outcomes and writes suite reports.
package evaluation

import (
	"encoding/json"
	"time"
)

// Result is the outcome of one probe. It is built once by NewResult and is
// read-only afterwards; accessors hand out copies of the mutable parts.
type Result struct {
	testName     string
	success      bool
	score        *float64
	responseTime *time.Duration
	errorMessage string
	expected     interface{}
	actual       interface{}
	metadata     map[string]interface{}
}

type ResultOption func(*Result)

func WithScore(score float64) ResultOption {
	return func(r *Result) { r.score = &score }
}

func WithResponseTime(d time.Duration) ResultOption {
	return func(r *Result) { r.responseTime = &d }
}

func WithError(msg string) ResultOption {
	return func(r *Result) { r.errorMessage = msg }
}

func WithExpected(v interface{}) ResultOption {
	return func(r *Result) { r.expected = v }
}

func WithActual(v interface{}) ResultOption {
	return func(r *Result) { r.actual = v }
}

// WithMetadata merges m into the result metadata.
func WithMetadata(m map[string]interface{}) ResultOption {
	return func(r *Result) {
		for k, v := range m {
			r.metadata[k] = v
		}
	}
}

func NewResult(testName string, success bool, opts ...ResultOption) Result {
	r := Result{
		testName: testName,
		success:  success,
		metadata: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r Result) TestName() string      { return r.testName }
func (r Result) Success() bool         { return r.success }
func (r Result) ErrorMessage() string  { return r.errorMessage }
func (r Result) Expected() interface{} { return r.expected }
func (r Result) Actual() interface{}   { return r.actual }

func (r Result) Score() (float64, bool) {
	if r.score == nil {
		return 0, false
	}
	return *r.score, true
}

func (r Result) ResponseTime() (time.Duration, bool) {
	if r.responseTime == nil {
		return 0, false
	}
	return *r.responseTime, true
}

// Metadata returns a copy of the metadata map. It is never nil.
func (r Result) Metadata() map[string]interface{} {
	cp := make(map[string]interface{}, len(r.metadata))
	for k, v := range r.metadata {
		cp[k] = v
	}
	return cp
}

func (r Result) MetadataValue(key string) (interface{}, bool) {
	v, ok := r.metadata[key]
	return v, ok
}

type resultJSON struct {
	TestName     string                 `json:"test_name"`
	Success      bool                   `json:"success"`
	Score        *float64               `json:"score"`
	ResponseTime *float64               `json:"response_time"`
	ErrorMessage *string                `json:"error_message"`
	Expected     interface{}            `json:"expected_output"`
	Actual       interface{}            `json:"actual_output"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// MarshalJSON writes every field, with response_time in seconds.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		TestName: r.testName,
		Success:  r.success,
		Score:    r.score,
		Expected: r.expected,
		Actual:   r.actual,
		Metadata: r.metadata,
	}
	if r.responseTime != nil {
		secs := r.responseTime.Seconds()
		out.ResponseTime = &secs
	}
	if r.errorMessage != "" {
		msg := r.errorMessage
		out.ErrorMessage = &msg
	}
	if out.Metadata == nil {
		out.Metadata = map[string]interface{}{}
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Result{
		testName: in.TestName,
		success:  in.Success,
		score:    in.Score,
		expected: in.Expected,
		actual:   in.Actual,
		metadata: in.Metadata,
	}
	if in.ResponseTime != nil {
		d := time.Duration(*in.ResponseTime * float64(time.Second))
		r.responseTime = &d
	}
	if in.ErrorMessage != nil {
		r.errorMessage = *in.ErrorMessage
	}
	if r.metadata == nil {
		r.metadata = map[string]interface{}{}
	}
	return nil
}
