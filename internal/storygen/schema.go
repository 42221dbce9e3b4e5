package storygen

import "github.com/abhisek/kahani/internal/docparse"

// PassageSchema checks the passage document returned by generation and
// import requests. Unknown fields are tolerated.
var PassageSchema = &docparse.Schema{
	Name: "passage-document",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":               map[string]any{"type": "string"},
			"content_script":      map[string]any{"type": "string"},
			"content_romanized":   nullable("string"),
			"content_translation": nullable("string"),
			"word_count":          map[string]any{"type": []string{"integer", "null"}, "minimum": 0},
			"characters_used": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"role": nullable("string"),
					},
					"required": []any{"name"},
				},
			},
			"sentences": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index":       map[string]any{"type": "integer", "minimum": 0},
						"script":      map[string]any{"type": "string"},
						"romanized":   nullable("string"),
						"translation": nullable("string"),
						"words": map[string]any{
							"type": []string{"array", "null"},
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"surface":   map[string]any{"type": "string"},
									"romanized": nullable("string"),
									"gloss":     nullable("string"),
									"is_new":    nullable("boolean"),
									"category":  nullable("string"),
									"gender":    nullable("string"),
								},
								"required": []any{"surface"},
							},
						},
						"grammar_notes": map[string]any{
							"type":  []string{"array", "null"},
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []any{"index", "script"},
				},
			},
			"exercises": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type": map[string]any{"type": "string"},
						"question": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"prompt":         map[string]any{"type": "string"},
								"context":        nullable("string"),
								"sentence_index": nullable("integer"),
							},
							"required": []any{"prompt"},
						},
						"correct_answer": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":  []string{"array", "null"},
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []any{"type", "question", "correct_answer"},
				},
			},
		},
		"required": []any{"title", "content_script", "sentences"},
	},
}

// ValidationSchema checks the validator's correction report.
var ValidationSchema = &docparse.Schema{
	Name: "passage-validation",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"has_issues": map[string]any{"type": "boolean"},
			"issues": map[string]any{
				"type":  []string{"array", "null"},
				"items": map[string]any{"type": "string"},
			},
			"corrected_script":      nullable("string"),
			"corrected_romanized":   nullable("string"),
			"corrected_translation": nullable("string"),
			"sentences": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index":       map[string]any{"type": "integer"},
						"changed":     map[string]any{"type": "boolean"},
						"script":      nullable("string"),
						"romanized":   nullable("string"),
						"translation": nullable("string"),
					},
					"required": []any{"index", "changed"},
				},
			},
		},
		"required": []any{"has_issues"},
	},
}

// nullable accepts t or JSON null. Models emit null for optional fields;
// decoding leaves the zero value.
func nullable(t string) map[string]any {
	return map[string]any{"type": []string{t, "null"}}
}
