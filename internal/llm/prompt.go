package llm

import "strings"

// BuildSystemPrompt composes the fixed extraction instruction. The contract
// is deliberately strict about verbatim values: downstream persistence relies
// on the backend never reformatting what it reads.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an expert extraction algorithm.",
		"Only extract relevant information from the text.",
		"If you do not know the value of an attribute asked to extract, return null for the attribute's value.",
		"Write every value as-is, do NOT change the format.",
		"Return ONLY JSON that matches the provided JSON Schema.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the document text as the sole user content.
func BuildUserPrompt(text string) string {
	return text
}
