package engine

import "fmt"

// User-facing dialogue text.

const (
	followupFirst = "Reply with '/new' to brainstorm another idea, or '/done' if you're happy with the feature!"
	followup      = "Reply with '/new' to brainstorm another idea, or '/done' if you're happy, or suggest an improvement!"

	anotherIdeaPreamble  = "Here's another idea:\n"
	improvedIdeaPreamble = "Here's an improved idea based on your suggestion:\n"

	prdPreamble = "Here's your PRD document in markdown format:\n"

	declineAck = "Awesome! Glad you're happy with the feature. If you want to brainstorm again, just type '/feature'."

	confirmTitle   = "Generate PRD Document?"
	confirmMessage = "Would you like to generate a markdown Product Requirements Document (PRD) for your finalized idea?"
)

func brainstormGreeting(owner string) string {
	return fmt.Sprintf("No problem %s! Let's brainstorm.\n\n", owner)
}

func idleGreeting(owner string) string {
	return fmt.Sprintf("Hi %s! The options you have are asking me about a feature request or a product idea. Type '/feature' to get a wacky product idea!", owner)
}
