package promptcraft

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// evaluationListSchema guards the evaluation list before it is decoded. It
// only pins the fields the portal derives views from.
const evaluationListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "task_id", "status", "created_at"],
    "properties": {
      "id": {"type": "integer"},
      "task_id": {"type": "integer"},
      "submission_id": {"type": ["integer", "null"]},
      "status": {"type": "string"},
      "created_at": {"type": "string"},
      "overall_score": {"type": ["number", "null"]},
      "difficulty_level": {"type": ["string", "null"]},
      "programming_language": {"type": ["string", "null"]},
      "scores": {"type": ["object", "null"]}
    }
  }
}`

var evaluationsSchema = jsonschema.MustCompileString("promptcraft://evaluations.schema.json", evaluationListSchema)

func validatePayload(schema *jsonschema.Schema, payload []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("payload failed schema validation: %w", err)
	}
	return nil
}
