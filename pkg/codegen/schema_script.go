package codegen

import (
	"context"
	"fmt"
	"strings"
)

// SchemaScriptRequest asks for a script that generalizes a demonstrated
// sample transform over a full dataset.
type SchemaScriptRequest struct {
	// ExampleInputJSONL is the phase-1 input sample, one record per line.
	ExampleInputJSONL string

	// ExampleOutputJSON is the accepted phase-1 output document.
	ExampleOutputJSON string

	// TargetSchema is the target schema document text.
	TargetSchema string

	// SchemaKind names the target array key (gnss_data / imu_data).
	SchemaKind string

	// DatasetExcerptJSONL is a bounded slice of the full dataset, so the
	// script sees shape variation beyond the example records.
	DatasetExcerptJSONL string

	// PriorErrorContext carries violations from the previous attempt.
	PriorErrorContext string
}

// GenerateSchemaScript requests a transformation script reproducing the
// demonstrated input→output pattern over an arbitrary dataset.
func (c *Client) GenerateSchemaScript(ctx context.Context, req SchemaScriptRequest) (string, error) {
	content, err := c.complete(ctx, "generate_schema_script",
		schemaScriptSystemPrompt(req.SchemaKind),
		schemaScriptUserPrompt(req))
	if err != nil {
		return "", err
	}
	script := stripCodeFence(content)
	if strings.TrimSpace(script) == "" {
		return "", &ServiceError{Kind: KindParse, Op: "generate_schema_script", Err: fmt.Errorf("empty script in response")}
	}
	return script, nil
}

func schemaScriptSystemPrompt(schemaKind string) string {
	return strings.Join([]string{
		"You write standalone Python 3 scripts that map location records onto a fixed target schema.",
		"The script reads JSONL records from the file path in sys.argv[1] and writes a single JSON object",
		"with the key \"" + schemaKind + "\" holding the converted array to stdout.",
		"Reproduce exactly the transformation demonstrated by the example pair.",
		"Return ONLY the script source. No prose, no markdown.",
	}, " ")
}

func schemaScriptUserPrompt(req SchemaScriptRequest) string {
	var b strings.Builder
	b.WriteString("Target schema:\n")
	b.WriteString(req.TargetSchema)
	b.WriteString("\n\nExample input records (JSONL):\n")
	b.WriteString(req.ExampleInputJSONL)
	b.WriteString("\n\nAccepted example output:\n")
	b.WriteString(req.ExampleOutputJSON)
	if req.DatasetExcerptJSONL != "" {
		b.WriteString("\n\nFurther records from the dataset the script must handle (JSONL):\n")
		b.WriteString(req.DatasetExcerptJSONL)
	}
	if req.PriorErrorContext != "" {
		b.WriteString("\n\nYour previous script produced non-compliant output. Violations:\n")
		b.WriteString(req.PriorErrorContext)
		b.WriteString("\nReturn a corrected complete script.")
	}
	return b.String()
}
