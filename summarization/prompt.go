package summarization

import (
	"fmt"
	"strings"
)

// SummaryPreset is the long-form summary of a recording.
func SummaryPreset() Options {
	return Options{Style: StyleDetailed}
}

// TopicPreset asks for a short label that names the recording.
func TopicPreset() Options {
	return Options{
		Style:        StyleBrief,
		TargetLength: 8,
		CustomPrompt: "Give a short title of at most 8 words for the following transcript. " +
			"Answer with the title only, without quotes or punctuation at the end.",
	}
}

var styleInstructions = map[Style]string{
	StyleBrief:     "Write a brief summary in one or two sentences.",
	StyleDetailed:  "Write a detailed summary that keeps every decision, action item and open question.",
	StyleBullet:    "Summarize as a list of concise bullet points, one idea per bullet.",
	StyleNarrative: "Summarize as flowing prose that follows the order of the conversation.",
}

// Prompt is the system/user pair sent to chat models.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the instructions for opts around text. A custom prompt
// replaces the generated instructions; the transcript is always the user message.
func BuildPrompt(text string, opts Options) Prompt {
	if opts.CustomPrompt != "" {
		return Prompt{System: opts.CustomPrompt, User: text}
	}

	style := opts.Style
	if style == "" {
		style = StyleDetailed
	}
	var b strings.Builder
	b.WriteString("You summarize transcripts of spoken recordings. ")
	b.WriteString(styleInstructions[style])
	if opts.TargetLength > 0 {
		fmt.Fprintf(&b, " Aim for about %d words.", opts.TargetLength)
	}
	if opts.Language != "" {
		fmt.Fprintf(&b, " Write the summary in %s.", opts.Language)
	} else {
		b.WriteString(" Write the summary in the language of the transcript.")
	}
	if len(opts.FocusPoints) > 0 {
		b.WriteString(" Make sure to cover: ")
		b.WriteString(strings.Join(opts.FocusPoints, "; "))
		b.WriteString(".")
	}
	b.WriteString(" Do not invent content that is not in the transcript.")
	return Prompt{System: b.String(), User: text}
}

// Merge applies opts over defaults and returns the result.
func (o *Options) Merge(defaults Options) Options {
	out := defaults
	if o == nil {
		return out
	}
	if o.TargetLength != 0 {
		out.TargetLength = o.TargetLength
	}
	if o.Style != "" {
		out.Style = o.Style
	}
	if o.Language != "" {
		out.Language = o.Language
	}
	if o.CustomPrompt != "" {
		out.CustomPrompt = o.CustomPrompt
	}
	if len(o.FocusPoints) > 0 {
		out.FocusPoints = o.FocusPoints
	}
	if o.Model != "" {
		out.Model = o.Model
	}
	return out
}

// MaxTokens estimates a completion budget for the target length: roughly
// 1.5 tokens per word with headroom. Zero leaves the model default.
func MaxTokens(targetLength int) int {
	if targetLength <= 0 {
		return 0
	}
	return targetLength*2 + 16
}
