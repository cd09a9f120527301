package evaluator

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt embeds the rubric tool definition the model must answer with.
func BuildSystemPrompt(r Rubric) (string, error) {
	tool, err := r.ToolJSON()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`You audit recorded sales calls by calling the tool defined below.
Answer with one JSON object containing exactly the tool's parameters: every required key, no other keys, no commentary.

tools=%s,
response_format={
    "type": "text"
}
`, tool), nil
}

// BuildPrompt builds the user instruction carrying the transcript.
func BuildPrompt(r Rubric, transcript string) string {
	var aspects strings.Builder
	for _, d := range r.Dimensions() {
		aspects.WriteString("- " + d + "\n")
	}

	prompt := `Based on the following transcription of a sales call, perform the call audit using the provided tool.

Score each of these aspects:
%s
For every aspect, explain the score in detail and support it with verbatim excerpts of what was said in the call.
Evaluate the salesperson's performance and give points for improvement, again citing verbatim examples from the conversation. Then give an overall score. Be highly critical.

Transcription:
"%s"

Use the provided tool and output the evaluation as JSON.
`
	return fmt.Sprintf(prompt, aspects.String(), transcript)
}
