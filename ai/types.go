package ai

// Entity labels produced by extractors.
const (
	LabelOrganization = "ORG"
	LabelPerson       = "PERSON"
	LabelProduct      = "PRODUCT"
)

// Entity is a single entity mention found in text.
type Entity struct {
	// Text is the mention as written.
	Text string

	// Label categorizes the mention, one of the Label constants.
	Label string
}

// Organizations returns the text of every organization mention in entities,
// preserving order and repetition.
func Organizations(entities []Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.Label == LabelOrganization {
			out = append(out, e.Text)
		}
	}
	return out
}
