// Package contacts loads and validates contact files. A contact file is a
// JSON document of the shape {"contacts": [{...}, ...]} where each record is
// a flat string-keyed object carrying at least a first name and an email
// address.
package contacts

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"email-assistant/internal/common/logger"
	"email-assistant/internal/models"
)

const contactsSchema = `{
	"type": "object",
	"required": ["contacts"],
	"properties": {
		"contacts": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["first_name", "email"],
				"properties": {
					"first_name": {"type": "string", "minLength": 1},
					"last_name": {"type": "string"},
					"email": {"type": "string", "format": "email"},
					"job_title": {"type": "string"},
					"company": {"type": "string"},
					"industry": {"type": "string"}
				},
				"additionalProperties": {"type": "string"}
			}
		}
	}
}`

type Loader struct {
	schema *gojsonschema.Schema
	logger logger.Logger
}

func NewLoader(log logger.Logger) (*Loader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(contactsSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile contacts schema: %w", err)
	}
	return &Loader{
		schema: schema,
		logger: log.WithFields(map[string]interface{}{
			"component": "contacts",
		}),
	}, nil
}

// Load validates data against the contacts schema and decodes it. The
// returned error names every schema violation, not just the first.
func (l *Loader) Load(data []byte) ([]models.ContactRecord, error) {
	result, err := l.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid contacts document: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid contacts document: %s", formatViolations(result))
	}

	var file models.ContactsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}

	l.logger.Info("contacts loaded", map[string]interface{}{
		"count": len(file.Contacts),
	})
	return file.Contacts, nil
}

func formatViolations(result *gojsonschema.Result) string {
	out := ""
	for i, violation := range result.Errors() {
		if i > 0 {
			out += "; "
		}
		out += violation.String()
	}
	return out
}
