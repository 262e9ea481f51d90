package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the prompt and model parameters used by the advisor
type PromptConfig struct {
	ClaimReview struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"claim_review"`
}

const defaultSystemPrompt = `You assist an HR reviewer who decides expense reimbursement claims.
Recommend exactly one decision: "approve", "reject" or "needs_info".
Respond with a JSON object with the keys "recommendation", "confidence" (0 to 1) and "reasoning".`

const defaultUserTemplate = `Claim {{.Claim.ID}} submitted by {{.SubmitterName}}.
Type: {{.ClaimTypeName}}
Summary: {{.Claim.Desc1}}
{{- if .Claim.Desc2}}
Details: {{.Claim.Desc2}}
{{- end}}
{{- if .Claim.Description}}
Notes: {{.Claim.Description}}
{{- end}}
Transaction date: {{.TransactionDate}}
Amount: {{.Claim.TransactionTotal.String}}
Attachments: {{len .Attachments}}
{{- range .Attachments}}
- {{.FileName}} ({{.MimeType}}{{if .PageCount}}, {{.PageCount}} pages{{end}})
{{- end}}
{{- if .Reviews}}
Earlier reviews:
{{- range .Reviews}}
- {{.Decision}}{{if .Note}}: {{.Note}}{{end}}
{{- end}}
{{- end}}`

// DefaultPrompts returns the built-in prompt configuration
func DefaultPrompts() *PromptConfig {
	var p PromptConfig
	p.ClaimReview.Temperature = 0.2
	p.ClaimReview.MaxTokens = 400
	p.ClaimReview.System = defaultSystemPrompt
	p.ClaimReview.UserTemplate = defaultUserTemplate
	return &p
}

// LoadPrompts loads prompt configuration from a YAML file. Missing entries
// fall back to the built-in defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if _, err := template.New("prompt").Parse(prompts.ClaimReview.UserTemplate); err != nil {
		return nil, fmt.Errorf("invalid user_template: %w", err)
	}

	return prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
