package engine

import "fmt"

// Prompt templates for the idea generator. One call per turn; the
// templates fold the session state into plain instructions.

func startPrompt() string {
	return "Generate a wacky, humorous, but plausible product feature idea in a playful tone."
}

func nextPrompt(currentIdea, suggestion string) string {
	p := fmt.Sprintf("Generate another wacky, humorous, but plausible product feature idea. Make it different from this one: %q.", currentIdea)
	if suggestion != "" {
		p += fmt.Sprintf(" Incorporate this user suggestion: %q.", suggestion)
	}
	return p + " Keep it playful!"
}

func refinePrompt(currentIdea, suggestion string) string {
	return fmt.Sprintf("Refine this wacky, humorous, but plausible product feature idea: %q. Incorporate this user suggestion: %q. Keep it playful!", currentIdea, suggestion)
}
