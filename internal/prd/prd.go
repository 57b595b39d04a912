// Package prd renders a finalized brainstorming session into a product
// requirements document.
package prd

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is the session data a document is rendered from. It is taken
// when the confirmation request is issued, so the document reflects the
// session exactly as the user saw it.
type Snapshot struct {
	Owner      string
	Idea       string
	Suggestion string
}

// Render produces the PRD markdown for a snapshot. It is a pure
// function of its inputs: the same snapshot and date always render the
// same bytes. Idea and suggestion text is neutralized so a stray code
// fence cannot break the document when it is itself embedded in a
// fenced block.
func Render(snap Snapshot, date time.Time) string {
	idea := neutralizeFences(snap.Idea)
	suggestion := neutralizeFences(snap.Suggestion)

	var b strings.Builder
	b.WriteString("# Product Requirements Document (PRD)\n")
	b.WriteString("### Project: **Wacky Product Manager Feature**\n")
	fmt.Fprintf(&b, "**Author:** %s\n", snap.Owner)
	fmt.Fprintf(&b, "**Date:** %s\n\n", date.UTC().Format("2006-01-02"))

	b.WriteString("## 1. Objective\n\n")
	b.WriteString("Suggest a wacky and humorous product feature idea.\n\n")

	b.WriteString("## 2. Feature Idea\n\n")
	b.WriteString(idea + "\n\n")

	requirementsSection := 3
	if suggestion != "" {
		b.WriteString("## 3. User Suggestion\n\n")
		b.WriteString(suggestion + "\n\n")
		requirementsSection = 4
	}

	fmt.Fprintf(&b, "## %d. Requirements\n", requirementsSection)
	b.WriteString("- The feature should be absurd but plausible in a playful way.\n")
	b.WriteString("- Should be generated in a humorous tone.\n")

	return b.String()
}

// neutralizeFences backslash-escapes every backtick of a triple-backtick
// run. The escaped form renders as literal backticks but can no longer
// open or close a fence.
func neutralizeFences(s string) string {
	return strings.ReplaceAll(s, "```", "\\`\\`\\`")
}
