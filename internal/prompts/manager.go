// Package prompts renders the system and user prompts sent to the model.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	apperrors "lead-orchestrator/internal/common/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type ServiceType string

const (
	LeadQualification      ServiceType = "lead_qualification"
	MessagePersonalization ServiceType = "message_personalization"
)

type role string

const (
	roleSystem role = "system"
	roleUser   role = "user"
)

// Values are the named substitutions handed to a template.
type Values map[string]interface{}

// Manager renders prompts by service type. It is safe for concurrent use.
type Manager struct {
	templates map[string]*template.Template
}

func NewManager() (*Manager, error) {
	m := &Manager{templates: make(map[string]*template.Template)}
	for _, service := range []ServiceType{LeadQualification, MessagePersonalization} {
		for _, r := range []role{roleSystem, roleUser} {
			name := templateName(service, r)
			raw, err := templateFS.ReadFile("templates/" + name)
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", name, err)
			}
			tmpl, err := template.New(name).Parse(string(raw))
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}
			m.templates[name] = tmpl
		}
	}
	return m, nil
}

// MustNewManager panics if the embedded templates fail to parse.
func MustNewManager() *Manager {
	m, err := NewManager()
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Manager) SystemPrompt(service ServiceType, values Values) (string, error) {
	return m.render(service, roleSystem, values)
}

func (m *Manager) UserPrompt(service ServiceType, values Values) (string, error) {
	return m.render(service, roleUser, values)
}

func (m *Manager) render(service ServiceType, r role, values Values) (string, error) {
	tmpl, ok := m.templates[templateName(service, r)]
	if !ok {
		return "", apperrors.NewPromptRenderError(fmt.Sprintf("unknown service type: %s", service), nil)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}(values)); err != nil {
		return "", apperrors.NewPromptRenderError(fmt.Sprintf("render %s %s prompt", service, r), err)
	}
	return buf.String(), nil
}

func templateName(service ServiceType, r role) string {
	return fmt.Sprintf("%s_%s.tmpl", service, r)
}
