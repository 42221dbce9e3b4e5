package storygen

import (
	"strings"
	"testing"

	"github.com/abhisek/kahani/internal/lexicon"
)

func sampleContext() Context {
	return Context{
		KnownWords: "- घर (ghar) — house\n- पानी (paani) — water",
		Grammar:    "- Postpositions: में, पर, से",
		Characters: "- मीरा: a curious student [appeared 2 times]",
		NewWords:   "- बाज़ार (bazaar) — market",
	}
}

func TestBuildGenerateRequest_Deterministic(t *testing.T) {
	p := GenerateParams{Language: "Hindi", Tier: lexicon.TierA2, Topic: "market", Context: sampleContext()}
	a := BuildGenerateRequest(p, DefaultConfig())
	b := BuildGenerateRequest(p, DefaultConfig())

	if renderRequest(a) != renderRequest(b) {
		t.Fatal("identical inputs produced different prompts")
	}
	if !a.JSON {
		t.Error("generation should request JSON output")
	}
}

func TestBuildGenerateRequest_ContainsBlocks(t *testing.T) {
	req := BuildGenerateRequest(GenerateParams{Language: "Hindi", Tier: lexicon.TierA2, Topic: "market", Context: sampleContext()}, DefaultConfig())
	msg := req.UserPrompt()

	for _, want := range []string{
		"A2 level",
		"KNOWN VOCABULARY",
		"- घर (ghar) — house",
		"NEW WORDS TO INTRODUCE",
		"- बाज़ार (bazaar) — market",
		"GRAMMAR TO PRACTICE:\n- Postpositions",
		"RECURRING CHARACTERS",
		"TOPIC: market",
		`"characters_used"`,
		`"is_new"`,
		`"grammar_notes"`,
		`"correct_answer"`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(req.System, "Hindi") {
		t.Errorf("system prompt should name the language: %q", req.System)
	}
}

func TestBuildGenerateRequest_EmptyBlocks(t *testing.T) {
	req := BuildGenerateRequest(GenerateParams{Language: "Hindi", Tier: lexicon.TierA1, Topic: "daily life"}, DefaultConfig())
	msg := req.UserPrompt()

	if !strings.Contains(msg, "Basic greetings and pronouns") {
		t.Error("empty known vocabulary should use the beginner default")
	}
	if !strings.Contains(msg, "Basic sentence structure") {
		t.Error("empty grammar should use the default")
	}
	if strings.Contains(msg, "RECURRING CHARACTERS") || strings.Contains(msg, "NEW WORDS TO INTRODUCE") {
		t.Error("optional blocks should be omitted when empty")
	}
}

func TestBuildImportRequest_PreservesText(t *testing.T) {
	text := "राम ने कहा, \"चलो!\"\nसब चले।"
	req := BuildImportRequest(ImportParams{Language: "Hindi", Tier: lexicon.TierA1, Topic: "walk", Text: text}, DefaultConfig())
	msg := req.UserPrompt()

	if !strings.Contains(msg, "<<<\n"+text+"\n>>>") {
		t.Error("import prompt must embed the text verbatim")
	}
	if !strings.Contains(msg, "Do NOT paraphrase") {
		t.Error("import prompt must forbid paraphrasing")
	}
	if req.Temperature != 0 {
		t.Errorf("import temperature = %v, want 0", req.Temperature)
	}

	again := BuildImportRequest(ImportParams{Language: "Hindi", Tier: lexicon.TierA1, Topic: "walk", Text: text}, DefaultConfig())
	if renderRequest(req) != renderRequest(again) {
		t.Error("import prompt is not deterministic")
	}
}

func TestBuildValidateRequest_OmitsAnnotations(t *testing.T) {
	doc := marketDoc()
	req := BuildValidateRequest("Hindi", lexicon.TierA1, "market", doc, DefaultConfig())
	msg := req.UserPrompt()

	if !strings.Contains(msg, doc.ContentScript) {
		t.Error("validator prompt should include the full text")
	}
	if strings.Contains(msg, `"gloss"`) {
		t.Error("validator prompt should not include word annotations")
	}
	for _, want := range []string{"Grammatical form", "narrative cohesion", "Unnatural", `"has_issues"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("validator prompt missing %q", want)
		}
	}
}

func TestBuildValidateRequest_ListsSentencesByIndex(t *testing.T) {
	doc := marketDoc()
	msg := BuildValidateRequest("Hindi", lexicon.TierA1, "market", doc, DefaultConfig()).UserPrompt()

	for _, want := range []string{
		"SENTENCES:\n[0] मीरा बाज़ार गई।\n    romanized: meera bazaar gayi.\n    translation: Meera went to the market.\n",
		"[1] बाज़ार में आम थे।\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("validator prompt missing %q:\n%s", want, msg)
		}
	}
}
