package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"

	"lead-orchestrator/pkg/registry"
)

const modulePath = "lead-orchestrator"

// field is one generated struct field.
type field struct {
	Name    string
	Type    string
	JSONTag string
}

type scaffoldData struct {
	Module         string
	Package        string
	TaskType       string
	DisplayName    string
	Description    string
	TimeoutLiteral string
	InputFields    []field
	OutputFields   []field
}

func scaffoldCmd() *cobra.Command {
	var outDir string
	var force bool
	cmd := &cobra.Command{
		Use:   "scaffold <task-type>",
		Short: "Generate a job-worker package for a catalog activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			activity, ok := reg.Find(args[0])
			if !ok {
				return fmt.Errorf("no activity with task type %q", args[0])
			}
			files, err := renderWorker(activity)
			if err != nil {
				return err
			}
			dir := filepath.Join(outDir, activity.Category, activity.TaskType)
			if err := writeFiles(dir, files, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d files in %s\n", len(files), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "internal/workers", "root directory for worker packages")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

// renderWorker returns gofmt-ed sources keyed by file name.
func renderWorker(a *registry.Activity) (map[string][]byte, error) {
	data := scaffoldData{
		Module:         modulePath,
		Package:        packageName(a.TaskType),
		TaskType:       a.TaskType,
		DisplayName:    a.DisplayName,
		Description:    a.Description,
		TimeoutLiteral: durationLiteral(a.TimeoutDuration()),
		InputFields:    schemaFields(a.InputSchema),
		OutputFields:   schemaFields(a.OutputSchema),
	}

	out := make(map[string][]byte, len(workerTemplates))
	for name, tmpl := range workerTemplates {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		out[name] = src
	}
	return out, nil
}

func writeFiles(dir string, files map[string][]byte, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, src := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func packageName(taskType string) string {
	return strings.NewReplacer("-", "", "_", "", ".", "").Replace(strings.ToLower(taskType))
}

func durationLiteral(d time.Duration) string {
	switch {
	case d <= 0:
		return "time.Minute"
	case d%time.Minute == 0:
		return fmt.Sprintf("%d * time.Minute", d/time.Minute)
	default:
		return fmt.Sprintf("%d * time.Second", d/time.Second)
	}
}

// schemaFields maps the top-level properties of a JSON schema to Go fields,
// sorted by name. Properties not listed as required get omitempty.
func schemaFields(schema map[string]interface{}) []field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		tag := name
		if !required[name] {
			tag += ",omitempty"
		}
		fields = append(fields, field{
			Name:    exportedName(name),
			Type:    goType(details),
			JSONTag: fmt.Sprintf("`json:\"%s\"`", tag),
		})
	}
	return fields
}

func goType(details map[string]interface{}) string {
	switch details["type"] {
	case "string":
		return "string"
	case "integer":
		return "int64"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		if items, ok := details["items"].(map[string]interface{}); ok {
			return "[]" + goType(items)
		}
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// exportedName turns leadId, lead_id and lead-id into LeadID.
func exportedName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, p := range parts {
		if strings.EqualFold(p, "id") {
			b.WriteString("ID")
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	out := b.String()
	if strings.HasSuffix(out, "Id") {
		out = strings.TrimSuffix(out, "Id") + "ID"
	}
	return out
}

var workerTemplates = map[string]*template.Template{
	"config.go":       template.Must(template.New("config").Parse(configTemplate)),
	"models.go":       template.Must(template.New("models").Parse(modelsTemplate)),
	"handler.go":      template.Must(template.New("handler").Parse(handlerTemplate)),
	"handler_test.go": template.Must(template.New("test").Parse(testTemplate)),
}

const configTemplate = `package {{ .Package }}

import (
	"time"

	"{{ .Module }}/internal/common/config"
)

const defaultTimeout = {{ .TimeoutLiteral }}

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Config{Timeout: timeout}
}
`

const modelsTemplate = `package {{ .Package }}

type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .Type }} {{ .JSONTag }}
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .Name }} {{ .Type }} {{ .JSONTag }}
{{- end }}
}
`

const handlerTemplate = `package {{ .Package }}

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"{{ .Module }}/internal/common/camunda"
	apperrors "{{ .Module }}/internal/common/errors"
	"{{ .Module }}/internal/common/logger"
)

const (
	TaskType = "{{ .TaskType }}"
)

// Service performs the {{ .DisplayName }} activity.
type Service interface {
	Execute(ctx context.Context, input *Input) (*Output, error)
}

type Handler struct {
	config  *Config
	service Service
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, service Service, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		service: service,
		errors:  apperrors.NewErrorHandler(log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := camunda.DecodeVariables(job, TaskType, &input); err != nil {
		camunda.FailJob(context.Background(), client, job, err, h.errors)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		camunda.FailJob(context.Background(), client, job, err, h.errors)
		return
	}

	camunda.CompleteJob(context.Background(), client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}
	return h.service.Execute(ctx, input)
}
`

const testTemplate = `package {{ .Package }}

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "{{ .Module }}/internal/common/errors"
	"{{ .Module }}/internal/common/logger"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Execute(ctx context.Context, input *Input) (*Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Output), args.Error(1)
}

func TestExecute_DelegatesToService(t *testing.T) {
	svc := new(MockService)
	input := &Input{}
	svc.On("Execute", mock.Anything, input).Return(&Output{}, nil)

	h := NewHandler(&Config{Timeout: time.Second}, svc, logger.NewTestLogger(t))
	out, err := h.execute(context.Background(), input)

	require.NoError(t, err)
	assert.NotNil(t, out)
	svc.AssertExpectations(t)
}

func TestExecute_NilInput(t *testing.T) {
	h := NewHandler(&Config{Timeout: time.Second}, new(MockService), logger.NewTestLogger(t))
	_, err := h.execute(context.Background(), nil)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}
`
