package translator

import (
	"context"
	"fmt"
	"strings"

	"basegraph.app/triage/common/llm"
)

// Translator turns short text (issue titles) into another language.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type translation struct {
	TranslatedText string `json:"translatedText" jsonschema_description:"The translated text, without quotes or commentary."`
}

var translationSchema = llm.GenerateSchema[translation]()

type llmTranslator struct {
	client llm.Client
}

// New returns a Translator backed by a structured-output chat model.
func New(client llm.Client) Translator {
	return &llmTranslator{client: client}
}

func (t *llmTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	var out translation
	_, err := t.client.Chat(ctx, llm.Request{
		SystemPrompt: fmt.Sprintf(
			"You translate GitHub issue titles from the language with ISO 639-1 code %q into the language with code %q. "+
				"Keep code identifiers, package names and version numbers unchanged.",
			sourceLang, targetLang),
		UserPrompt:  text,
		SchemaName:  "translation",
		Schema:      translationSchema,
		MaxTokens:   256,
		Temperature: llm.Temp(0),
	}, &out)
	if err != nil {
		return "", fmt.Errorf("translating %s to %s: %w", sourceLang, targetLang, err)
	}
	return strings.TrimSpace(out.TranslatedText), nil
}
