// Package registry holds the catalog of job-worker activities: task types,
// input and output schemas, retry budgets and the error codes each may throw.
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed activities.json
var embeddedCatalog []byte

var (
	defaultOnce sync.Once
	defaultReg  *ActivityRegistry
	defaultErr  error
)

// Default returns the catalog compiled into the binary.
func Default() (*ActivityRegistry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(embeddedCatalog)
	})
	return defaultReg, defaultErr
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	return &reg, nil
}

func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// MustFind is Find for task types compiled into this binary.
func (r *ActivityRegistry) MustFind(taskType string) *Activity {
	a, ok := r.Find(taskType)
	if !ok {
		panic(fmt.Sprintf("registry: no activity for task type %q", taskType))
	}
	return a
}

// InputError lists the schema violations of a job's variables.
type InputError struct {
	TaskType   string
	Violations []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s input invalid: %s", e.TaskType, strings.Join(e.Violations, "; "))
}

// ValidateInput checks raw job variables against the activity's input schema.
// An activity without a schema accepts anything.
func (a *Activity) ValidateInput(raw []byte) error {
	if len(a.InputSchema) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return &InputError{TaskType: a.TaskType, Violations: []string{"variables are not valid JSON"}}
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(a.InputSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate %s input: %w", a.TaskType, err)
	}
	if result.Valid() {
		return nil
	}
	ie := &InputError{TaskType: a.TaskType}
	for _, d := range result.Errors() {
		ie.Violations = append(ie.Violations, d.String())
	}
	return ie
}
