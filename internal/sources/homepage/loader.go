package homepage

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

// MaxDocumentSize bounds an uploaded file.
const MaxDocumentSize = 1 << 20

// ErrTooLarge is returned for documents over MaxDocumentSize.
var ErrTooLarge = errors.New("homepage: document too large")

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Parse reads a services.yaml or bookmarks.yaml document from r.
func Parse(r io.Reader) (Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, ErrTooLarge
	}

	// Strip Homepage template variables ({{HOMEPAGE_VAR_...}})
	data = stripTemplateVariables(data)

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse homepage yaml: %w", err)
	}

	return doc, nil
}

// stripTemplateVariables removes Homepage template variables from YAML
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
