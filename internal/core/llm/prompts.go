package llm

import (
	"fmt"
	"strings"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// systemPrompt is the static freight-forwarder system prompt shared by
// every provider and every tier (§4.3 "Prompt composition").
const systemPrompt = `You are a freight-forwarding operations analyst. You read one email from a shipment's
thread and extract a strongly-typed analysis of it: identifiers, parties, dates, cutoffs,
and whether the message asserts an open action or an issue that needs attention.

Only extract facts explicitly stated or directly implied by the message. Never infer a
date, identifier, or party that isn't present in the text. When a field cannot be
determined, leave it null. Dates must be rendered as ISO 8601 calendar dates (YYYY-MM-DD).

Call analyze_freight_communication exactly once with your result.`

// buildPrompt assembles the user-turn content for one extraction call.
func buildPrompt(in Input) string {
	var b strings.Builder

	if in.ThreadPosition <= 1 {
		b.WriteString("Subject: ")
		b.WriteString(in.Message.Subject)
		b.WriteString("\n")
	} else {
		b.WriteString(threadContextBlock(in.ThreadContext))
	}

	b.WriteString(fmt.Sprintf("From: %s\nThread position: %d\n\n", in.Message.SenderAddress, in.ThreadPosition))

	b.WriteString("Message body:\n")
	b.WriteString(truncate(in.Message.Body, maxBodyChars))
	b.WriteString("\n")

	if in.AttachmentText != "" {
		b.WriteString("\nAttachment text:\n")
		b.WriteString(truncate(in.AttachmentText, maxAttachmentChars))
		b.WriteString("\n")
	}

	if in.AuxContextText != "" {
		b.WriteString("\nAdditional context:\n")
		b.WriteString(in.AuxContextText)
		b.WriteString("\n")
	}

	return b.String()
}

// threadContextBlock renders up to the last 10 in-thread chronicles as
// a compact summary, omitting the (stale, forwarded) subject line.
func threadContextBlock(summaries []ThreadSummary) string {
	if len(summaries) == 0 {
		return ""
	}

	start := 0
	if len(summaries) > maxThreadContext {
		start = len(summaries) - maxThreadContext
	}

	var b strings.Builder

	b.WriteString("Thread so far:\n")

	for _, s := range summaries[start:] {
		b.WriteString(fmt.Sprintf("- [%s from %s] %s", s.DocumentType, s.FromParty, s.Summary))

		if ids := identifierSuffix(s.Identifiers); ids != "" {
			b.WriteString(" (" + ids + ")")
		}

		b.WriteString("\n")
	}

	b.WriteString("\n")

	return b.String()
}

func identifierSuffix(ids domain.Identifiers) string {
	var parts []string

	if ids.BookingNumber != nil {
		parts = append(parts, "booking "+*ids.BookingNumber)
	}

	if ids.MBLNumber != nil {
		parts = append(parts, "MBL "+*ids.MBLNumber)
	}

	if ids.WorkOrderNumber != nil {
		parts = append(parts, "WO "+*ids.WorkOrderNumber)
	}

	if len(ids.ContainerNumbers) > 0 {
		parts = append(parts, "containers "+strings.Join(ids.ContainerNumbers, ","))
	}

	return strings.Join(parts, ", ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}
