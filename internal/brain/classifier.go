package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"basegraph.app/triage/common/llm"
	"basegraph.app/triage/common/logger"
	"basegraph.app/triage/internal/model"
	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

const recordAnalysisTool = "record_analysis"

// outputSchema is a classifier output shape: a name for prompts and logs plus
// the reflected JSON schema used to build the prompt and validate the reply.
type outputSchema struct {
	Name   string
	Title  string
	Schema *jsonschema.Schema
}

func newOutputSchema[T any](name, title string) outputSchema {
	return outputSchema{Name: name, Title: title, Schema: llm.GenerateSchema[T]()}
}

var (
	issueAnalysisSchema   = newOutputSchema[model.IssueAnalysis]("issue_analysis", "Issue Categorisation")
	commentAnalysisSchema = newOutputSchema[model.CommentAnalysis]("comment_analysis", "Issue Categorisation")
	closedAnalysisSchema  = newOutputSchema[model.ClosedIssueAnalysis]("closed_issue_analysis", "Enhanced Issue Analysis")
)

// Classified is a validated classifier result with the raw text it was parsed from.
type Classified[T any] struct {
	Result T
	Raw    string
}

// Classifier wraps single calls to the external classification model.
type Classifier struct {
	client    llm.AgentClient
	maxTokens int
}

func NewClassifier(client llm.AgentClient, maxTokens int) *Classifier {
	return &Classifier{client: client, maxTokens: maxTokens}
}

// ClassifyIssue classifies a newly opened issue from its title and normalized body.
func (c *Classifier) ClassifyIssue(ctx context.Context, title, body string) (*Classified[model.IssueAnalysis], error) {
	return classify[model.IssueAnalysis](ctx, c, issueAnalysisSchema, newIssueInstructions, issueContent(title, body), "")
}

// ClassifyComment screens a single comment or edited body for a reproduction.
func (c *Classifier) ClassifyComment(ctx context.Context, text, author string) (*Classified[model.CommentAnalysis], error) {
	return classify[model.CommentAnalysis](ctx, c, commentAnalysisSchema, commentScreeningInstructions, text, author)
}

// ClassifyClosedIssue re-evaluates a closed issue using the enriched prompt.
func (c *Classifier) ClassifyClosedIssue(ctx context.Context, instructions, content, author string) (*Classified[model.ClosedIssueAnalysis], error) {
	return classify[model.ClosedIssueAnalysis](ctx, c, closedAnalysisSchema, instructions, content, author)
}

func classify[T any](ctx context.Context, c *Classifier, schema outputSchema, instructions, content, author string) (*Classified[T], error) {
	sc := logger.StartSpan(ctx, "triage.classify")
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes(attribute.String("schema", schema.Name), attribute.String("model", c.client.Model()))

	req := llm.AgentRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt(schema, instructions)},
			{Role: "user", Name: author, Content: content},
		},
		Tools: []llm.Tool{{
			Name:        recordAnalysisTool,
			Description: "Record the analysis as structured fields.",
			Parameters:  schema.Schema,
		}},
		MaxTokens:   c.maxTokens,
		Temperature: llm.Temp(0),
	}

	start := time.Now()
	resp, err := c.client.ChatWithTools(ctx, req)
	if err != nil {
		sc.RecordError(err)
		if errors.Is(err, llm.ErrEmptyResponse) || errors.Is(err, llm.ErrRefused) || errors.Is(err, llm.ErrTruncated) {
			return nil, &ClassificationError{
				Kind:   ClassificationMalformed,
				Schema: schema.Name,
				Err:    fmt.Errorf("%w: %w", ErrMalformedClassification, err),
			}
		}
		return nil, &ClassificationError{Kind: ClassificationTransport, Schema: schema.Name, Err: err}
	}

	raw := responsePayload(resp)
	result, err := parseClassification[T](schema, raw)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "classifier returned malformed output",
			"schema", schema.Name,
			"raw", logger.Truncate(raw, 500),
			"error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "classification completed",
		"schema", schema.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)

	return &Classified[T]{Result: result, Raw: raw}, nil
}

// responsePayload prefers the record_analysis tool call, since models often
// add a prose preamble next to it. Without one it reads the JSON object from
// the response text, then the first tool call's arguments.
func responsePayload(resp *llm.AgentResponse) string {
	for _, tc := range resp.ToolCalls {
		if tc.Name == recordAnalysisTool {
			return strings.TrimSpace(tc.Arguments)
		}
	}
	if text := stripCodeFence(strings.TrimSpace(resp.Content)); text != "" {
		return text
	}
	if len(resp.ToolCalls) > 0 {
		return strings.TrimSpace(resp.ToolCalls[0].Arguments)
	}
	return ""
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}

type normalizer interface {
	Normalize()
}

// parseClassification validates raw against the schema and decodes it into T.
// Absent or null booleans become false and absent strings take their declared
// default; a missing field without a default, a wrongly typed field or a value
// outside its enum is malformed. Fields outside the schema are dropped.
func parseClassification[T any](schema outputSchema, raw string) (T, error) {
	var zero T
	if raw == "" {
		return zero, malformed(schema.Name, raw, "empty response")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return zero, malformed(schema.Name, raw, "not a JSON object: %v", err)
	}

	validated := make(map[string]any, schema.Schema.Properties.Len())
	for pair := schema.Schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name, prop := pair.Key, pair.Value

		v, present := obj[name]
		if !present || v == nil {
			def, ok := defaultFor(prop)
			if !ok {
				return zero, malformed(schema.Name, raw, "missing required field %q", name)
			}
			validated[name] = def
			continue
		}

		switch prop.Type {
		case "boolean":
			if _, ok := v.(bool); !ok {
				return zero, malformed(schema.Name, raw, "field %q: want boolean, got %T", name, v)
			}
		case "string":
			s, ok := v.(string)
			if !ok {
				return zero, malformed(schema.Name, raw, "field %q: want string, got %T", name, v)
			}
			if len(prop.Enum) > 0 && !slices.Contains(prop.Enum, any(s)) {
				return zero, malformed(schema.Name, raw, "field %q: %q is not one of %v", name, s, prop.Enum)
			}
		}
		validated[name] = v
	}

	data, err := json.Marshal(validated)
	if err != nil {
		return zero, malformed(schema.Name, raw, "re-encoding: %v", err)
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return zero, malformed(schema.Name, raw, "decoding: %v", err)
	}
	if n, ok := any(&result).(normalizer); ok {
		n.Normalize()
	}
	return result, nil
}

func defaultFor(prop *jsonschema.Schema) (any, bool) {
	if prop.Default != nil {
		return prop.Default, true
	}
	if prop.Type == "boolean" {
		return false, true
	}
	return nil, false
}

// systemPrompt embeds the schema, serialized as XML, ahead of the role instructions.
func systemPrompt(schema outputSchema, instructions string) string {
	var b strings.Builder
	b.WriteString("You are a kind, helpful open-source maintainer that answers in JSON. ")
	b.WriteString("Here's the json schema you must adhere to:\n<schema>\n")
	writeSchemaXML(&b, schema)
	b.WriteString("\n</schema>\n")
	if instructions != "" {
		b.WriteString("\n")
		b.WriteString(instructions)
	}
	return b.String()
}

func writeSchemaXML(b *strings.Builder, schema outputSchema) {
	fmt.Fprintf(b, "<title>%s</title><type>object</type><properties>", schema.Title)
	for pair := schema.Schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name, prop := pair.Key, pair.Value
		fmt.Fprintf(b, "<%s><type>%s</type>", name, prop.Type)
		if len(prop.Enum) > 0 {
			b.WriteString("<enum>")
			for i, v := range prop.Enum {
				fmt.Fprintf(b, "<%d>%v</%d>", i, v, i)
			}
			b.WriteString("</enum>")
		}
		if prop.Description != "" {
			fmt.Fprintf(b, "<comment>%s</comment>", prop.Description)
		}
		fmt.Fprintf(b, "</%s>", name)
	}
	b.WriteString("</properties>")
}

func issueContent(title, body string) string {
	return fmt.Sprintf("# %s\n\n%s", title, body)
}
