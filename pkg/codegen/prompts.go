package codegen

import "strings"

// Prompt assembly for the two service operations. Prompts state the output
// contract up front and carry the prior attempt's structured error as
// corrective context on retries.

func scriptSystemPrompt(dataTypeHint string) string {
	parts := []string{
		"You write standalone Python 3 conversion scripts for navigation sensor logs.",
		"The script reads the input file path from sys.argv[1] and writes newline-delimited JSON to stdout, one object per line, no embedded newlines.",
		"Return ONLY the script source. No prose, no markdown.",
	}
	if dataTypeHint != "" {
		parts = append(parts, "The input is expected to be "+dataTypeHint+" data.")
	}
	return strings.Join(parts, " ")
}

func scriptUserPrompt(req ScriptRequest) string {
	var b strings.Builder
	b.WriteString("Required output line contract:\n")
	b.WriteString(req.TargetContract)
	b.WriteString("\n\nInput sample:\n")
	b.WriteString(req.SampleText)
	if req.PriorErrorContext != "" {
		b.WriteString("\n\nYour previous script failed. Fix the following and return a corrected complete script:\n")
		b.WriteString(req.PriorErrorContext)
	}
	return b.String()
}

func transformSystemPrompt(schemaKind string) string {
	return strings.Join([]string{
		"You convert navigation location records onto a fixed target schema.",
		"Return ONLY a JSON object with the single key \"" + schemaKind + "\" holding the converted array.",
		"Do not return code. Never output null; omit absent optional fields.",
	}, " ")
}

func transformUserPrompt(req TransformRequest) string {
	var b strings.Builder
	b.WriteString("Target schema:\n")
	b.WriteString(req.TargetSchema)
	b.WriteString("\n\nInput records (JSONL):\n")
	b.WriteString(req.SampleJSONL)
	if req.PriorErrorContext != "" {
		b.WriteString("\n\nYour previous output violated the schema. Violations:\n")
		b.WriteString(req.PriorErrorContext)
		b.WriteString("\nReturn a corrected document.")
	}
	return b.String()
}
