package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-content/internal/content"
)

// Envelope schemas only pin the container types the decoders walk. Field
// names are left open because aliases are resolved by Shape.
const (
	dayEnvelopeSchema = `{
		"type": "object",
		"properties": {
			"exercises":    {"type": ["array", "null"]},
			"objectives":   {"type": ["array", "null"]},
			"main_content": {"type": ["object", "null"]},
			"mainContent":  {"type": ["object", "null"]},
			"action_task":  {"type": ["object", "null"]},
			"actionTask":   {"type": ["object", "null"]}
		}
	}`

	planEnvelopeSchema = `{
		"type": "object",
		"properties": {
			"sections":   {"type": "array"},
			"milestones": {"type": ["array", "null"]}
		}
	}`

	analysisEnvelopeSchema = `{
		"type": "object",
		"properties": {
			"components": {"type": ["array", "null"]},
			"objectives": {"type": ["array", "null"]}
		}
	}`
)

var (
	dayEnvelope      = mustEnvelope("day content", dayEnvelopeSchema)
	planEnvelope     = mustEnvelope("learning plan", planEnvelopeSchema)
	analysisEnvelope = mustEnvelope("analysis", analysisEnvelopeSchema)
)

type envelope struct {
	name   string
	schema *gojsonschema.Schema
}

func mustEnvelope(name, src string) *envelope {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compiling %s envelope: %v", name, err))
	}
	return &envelope{name: name, schema: schema}
}

// decode parses data as a JSON object and checks it against the envelope.
func (e *envelope) decode(data []byte) (map[string]any, error) {
	data = stripCodeFence(data)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %v", content.ErrInvalidPayload, e.name, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a JSON object", content.ErrInvalidPayload, e.name)
	}
	if err := e.check(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (e *envelope) check(obj map[string]any) error {
	result, err := e.schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return fmt.Errorf("%w: checking %s: %v", content.ErrInvalidPayload, e.name, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		msgs = append(msgs, re.String())
	}
	return fmt.Errorf("%w: %s: %s", content.ErrInvalidPayload, e.name, strings.Join(msgs, "; "))
}

// stripCodeFence removes a surrounding ```json fence, which generators
// frequently emit around otherwise valid JSON.
func stripCodeFence(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return trimmed
	}
	trimmed = trimmed[3:]
	if nl := bytes.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = bytes.TrimSpace(trimmed)
	return bytes.TrimSuffix(trimmed, []byte("```"))
}
