package assist

import (
	"fmt"
	"strings"
)

const summarizeSystemPrompt = `You are an email triage assistant. You condense emails for a busy reviewer.

Respond with JSON only, in this exact shape:
{"summary": "...", "tasks": ["...", "..."]}

The summary is one or two sentences. Tasks are concrete action items for the reviewer; omit the array entries if there are none.`

const replySystemPrompt = `You are drafting an email reply on behalf of the reviewer.

Write in a direct, friendly, professional voice. Keep it short. Do not invent commitments the thread does not support. Respond with the reply body only - no subject line, no surrounding commentary.`

const refineSystemPrompt = `You are improving an existing email draft.

Apply the reviewer's instruction to the draft and respond with the complete improved draft body only - no commentary, no diff.`

const extractSystemPrompt = `You extract people and projects from emails for a personal knowledge base.

Respond with JSON only, in this exact shape:
{"people": [{"name": "...", "email": "...", "company": "...", "role": "..."}], "projects": [{"name": "...", "description": "..."}]}

Only include entities the email actually mentions. Leave unknown fields as empty strings. Never guess email addresses.`

func buildSummarizePrompt(subject, body string) string {
	return fmt.Sprintf("Subject: %s\n\n%s", subject, body)
}

func buildReplyPrompt(threadSubject string, participants, messages []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thread subject: %s\n", threadSubject)
	fmt.Fprintf(&b, "Participants: %s\n\n", strings.Join(participants, ", "))
	b.WriteString("Conversation, oldest first:\n")
	for i, m := range messages {
		fmt.Fprintf(&b, "\n--- message %d ---\n%s\n", i+1, m)
	}
	b.WriteString("\nDraft a reply to the latest message.")
	return b.String()
}

func buildRefinePrompt(body, instruction string) string {
	return fmt.Sprintf("Current draft:\n\n%s\n\nInstruction: %s", body, instruction)
}

func buildExtractPrompt(subject, body string) string {
	return fmt.Sprintf("Subject: %s\n\n%s", subject, body)
}
