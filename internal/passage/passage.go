// Package passage defines the structured document a model produces for one
// reading passage: parallel full texts, annotated sentences, exercises and
// the recurring characters it used.
package passage

// Document is the structured content of a passage as proposed by the model
// and refined by the validation and reconciliation steps.
type Document struct {
	Title              string          `json:"title"`
	ContentScript      string          `json:"content_script"`
	ContentRomanized   string          `json:"content_romanized"`
	ContentTranslation string          `json:"content_translation"`
	WordCount          int             `json:"word_count"`
	CharactersUsed     []CharacterUse  `json:"characters_used"`
	Sentences          []Sentence      `json:"sentences"`
	Exercises          []ExerciseDraft `json:"exercises"`
}

// Sentence is one annotated sentence of a passage.
type Sentence struct {
	Index        int              `json:"index"`
	Script       string           `json:"script"`
	Romanized    string           `json:"romanized"`
	Translation  string           `json:"translation"`
	Words        []WordAnnotation `json:"words"`
	GrammarNotes []string         `json:"grammar_notes,omitempty"`
}

// WordAnnotation describes one word occurrence in a sentence.
type WordAnnotation struct {
	Surface   string `json:"surface"`
	Romanized string `json:"romanized"`
	Gloss     string `json:"gloss"`
	WordID    string `json:"word_id,omitempty"`
	IsNew     bool   `json:"is_new"`
	Category  string `json:"category,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

// CharacterUse names a recurring character and the role it played.
type CharacterUse struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ExerciseDraft is an exercise as proposed by the model.
type ExerciseDraft struct {
	Type          string   `json:"type"`
	Question      Question `json:"question"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options,omitempty"`
}

// Question is the payload shown to the learner for one exercise.
type Question struct {
	Prompt        string `json:"prompt"`
	Context       string `json:"context,omitempty"`
	SentenceIndex *int   `json:"sentence_index,omitempty"`
}

// Empty returns the fallback document: no text, no sentences, no exercises.
func Empty() Document {
	return Document{
		CharactersUsed: []CharacterUse{},
		Sentences:      []Sentence{},
		Exercises:      []ExerciseDraft{},
	}
}

// ParseResult is the outcome of extracting a Document from model output.
// Exactly one of the two states holds: Ok with the parsed document, or a
// fallback carrying the empty document and the reason.
type ParseResult struct {
	Doc    Document
	Reason error
}

// Ok wraps a successfully parsed document.
func Ok(doc Document) ParseResult {
	return ParseResult{Doc: doc}
}

// Fallback returns the empty-document result for the given reason.
func Fallback(reason error) ParseResult {
	return ParseResult{Doc: Empty(), Reason: reason}
}

// IsFallback reports whether the result is the empty fallback.
func (r ParseResult) IsFallback() bool {
	return r.Reason != nil
}

// NewWordOccurrences returns the number of annotations flagged as new.
func (d *Document) NewWordOccurrences() int {
	n := 0
	for _, s := range d.Sentences {
		for _, w := range s.Words {
			if w.IsNew {
				n++
			}
		}
	}
	return n
}

// ClearNewFlag marks every annotation with the given surface form as not new.
// It returns the number of annotations changed.
func (d *Document) ClearNewFlag(surface string) int {
	n := 0
	for i := range d.Sentences {
		words := d.Sentences[i].Words
		for j := range words {
			if words[j].Surface == surface && words[j].IsNew {
				words[j].IsNew = false
				n++
			}
		}
	}
	return n
}

// AssignWordID sets the dictionary id on every annotation with the given
// surface form.
func (d *Document) AssignWordID(surface, id string) {
	for i := range d.Sentences {
		words := d.Sentences[i].Words
		for j := range words {
			if words[j].Surface == surface {
				words[j].WordID = id
			}
		}
	}
}

// Surfaces returns the distinct surface forms of all annotations in order of
// first occurrence.
func (d *Document) Surfaces() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range d.Sentences {
		for _, w := range s.Words {
			if w.Surface == "" || seen[w.Surface] {
				continue
			}
			seen[w.Surface] = true
			out = append(out, w.Surface)
		}
	}
	return out
}
