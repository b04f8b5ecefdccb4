package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/planeval/internal/model"
)

// predField accepts a list of actions, an {"actions": [...]} object,
// or a raw model response string holding one of those as JSON
type predField struct {
	actions []model.PredictedAction
}

type wrappedActions struct {
	Actions []predRecord `json:"actions" yaml:"actions"`
}

func (p *predField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		p.actions = nil
		return nil
	}

	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		actions, err := ParseResponse(raw)
		if err != nil {
			return err
		}
		p.actions = actions
		return nil
	}

	actions, err := decodeActionsJSON(data)
	if err != nil {
		return err
	}
	p.actions = actions
	return nil
}

func (p *predField) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			p.actions = nil
			return nil
		}
		actions, err := ParseResponse(value.Value)
		if err != nil {
			return err
		}
		p.actions = actions
	case yaml.SequenceNode:
		var records []predRecord
		if err := value.Decode(&records); err != nil {
			return err
		}
		p.actions = toPredicted(records)
	case yaml.MappingNode:
		var wrapped wrappedActions
		if err := value.Decode(&wrapped); err != nil {
			return err
		}
		p.actions = toPredicted(wrapped.Actions)
	default:
		return fmt.Errorf("%w: unsupported pred node at line %d", model.ErrMalformedRecord, value.Line)
	}
	return nil
}

func decodeActionsJSON(data []byte) ([]model.PredictedAction, error) {
	switch data[0] {
	case '[':
		var records []predRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return toPredicted(records), nil
	case '{':
		var wrapped wrappedActions
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		return toPredicted(wrapped.Actions), nil
	default:
		return nil, fmt.Errorf("%w: pred must be a list, an object or a string", model.ErrMalformedRecord)
	}
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ParseResponse extracts predicted actions from a raw model response.
// The JSON may sit inside a fenced code block or be surrounded by prose.
// A blank response yields no actions.
func ParseResponse(text string) ([]model.PredictedAction, error) {
	body := strings.TrimSpace(text)
	if body == "" {
		return nil, nil
	}

	if m := fencePattern.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(body, "[{")
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON found in response", model.ErrMalformedRecord)
	}
	body = body[start:]

	closing := "]"
	if body[0] == '{' {
		closing = "}"
	}
	if end := strings.LastIndex(body, closing); end >= 0 {
		body = body[:end+1]
	}

	actions, err := decodeActionsJSON([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return actions, nil
}
