package classify

import (
	"fmt"
	"strings"

	"github.com/ppiankov/distortia/internal/model"
)

const systemPrompt = "You are a cognitive distortion classifier. You label sentences and reply with JSON only."

// BuildPrompt asks an LLM for one classification per input, using only the
// given labels or the "No Distortion" sentinel
func BuildPrompt(req Request, labels []model.Label) string {
	var b strings.Builder

	b.WriteString("Classify each numbered input into exactly one of these labels:\n")
	for _, l := range labels {
		fmt.Fprintf(&b, "- %s\n", l)
	}
	fmt.Fprintf(&b, "- %s (use when no distortion is present)\n\n", model.NoDistortion)

	b.WriteString("Inputs:\n")
	for i, s := range req.Inputs() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}

	fmt.Fprintf(&b, `
Reply with a JSON object {"results": [...]} holding exactly %d items in input order.
Each item is {"input": <the input text>, "prediction": <label>, "confidence": <number between 0 and 1>}.
Copy label names exactly.`, req.Expected())

	return b.String()
}
