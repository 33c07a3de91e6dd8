package llmchat

import (
	"fmt"
	"strings"

	"github.com/poiesic/earningsrag/ai"
)

var entityLabels = []string{ai.LabelOrganization, ai.LabelPerson, ai.LabelProduct}

const entityResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {
            "type": "string"
          },
          "label": {
            "type": "string"
          }
        },
        "required": ["text", "label"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const entityPromptTemplate = `Extract the named entities mentioned in the given earnings call excerpt and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Label must be exactly one of: %s.
- ORG covers companies, banks, regulators, exchanges and other institutions.
- Copy the entity text exactly as written in the excerpt.
- List an entity once for every time it is mentioned, in order of appearance.
- Do not invent entities that are not in the excerpt.
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Thanks, Tim. Apple grew services while Foxconn and Apple expanded capacity."
Output:
{
  "entities": [
    {"text":"Tim","label":"PERSON"},
    {"text":"Apple","label":"ORG"},
    {"text":"Foxconn","label":"ORG"},
    {"text":"Apple","label":"ORG"}
  ]
}`

// buildEntityPrompt creates the system prompt with labels embedded.
func buildEntityPrompt() string {
	return fmt.Sprintf(entityPromptTemplate,
		entityResponseSchema,
		strings.Join(entityLabels, ", "))
}
