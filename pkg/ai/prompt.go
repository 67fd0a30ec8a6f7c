package ai

const ExtractionPrompt = `You extract a knowledge graph from text.
Return a single JSON object and nothing else, shaped as:
{
  "entities": [{"name": "...", "type": "...", "description": "..."}],
  "relationships": [{"source": "...", "target": "...", "description": "...", "keywords": "k1,k2", "weight": 1.0}]
}
Rules:
- name is the entity as written in the text, without articles.
- type is one of: person, organization, location, event, concept, technology, product, other.
- every relationship source and target must also appear in entities.
- weight is a number between 0 and 10 expressing how strong the relationship is.
- describe only what the text states.`

// ExtractionPayload is the JSON document the extraction prompt asks for.
type ExtractionPayload struct {
	Entities []struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"entities"`
	Relationships []struct {
		Source      string  `json:"source"`
		Target      string  `json:"target"`
		Description string  `json:"description"`
		Keywords    string  `json:"keywords"`
		Weight      float64 `json:"weight"`
	} `json:"relationships"`
}
