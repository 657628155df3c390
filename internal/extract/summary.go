package extract

import (
	"encoding/base64"
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

const (
	// Default trimming stages. Stage one keeps the two most recent
	// messages; stage two falls back to a single message with a tighter
	// body cap; past that the serialized summary is cut outright.
	stageOneMessages  = 2
	stageOneBodyLimit = 1200
	stageTwoMessages  = 1
	stageTwoBodyLimit = 800

	defaultBodyDecodeLimit = 4000

	truncationMarker = "...(truncated)"
)

var (
	htmlTags   = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// messageDigest is the per-message projection sent to the model: headers,
// snippet, and a truncated plain-text body. Raw payloads are never sent.
type messageDigest struct {
	ID       string  `json:"id"`
	ThreadID string  `json:"threadId"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Subject  string  `json:"subject"`
	Date     string  `json:"date"`
	Snippet  string  `json:"snippet"`
	Body     *string `json:"body"`
}

// buildThreadSummary reduces a thread to its most recent messages with
// capped plain-text bodies.
func buildThreadSummary(thread *model.Thread, maxMessages, bodyLimit int) []messageDigest {
	messages := thread.Messages
	if len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}

	summary := make([]messageDigest, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		summary = append(summary, messageDigest{
			ID:       msg.ID,
			ThreadID: msg.ThreadID,
			From:     msg.Header("From"),
			To:       msg.Header("To"),
			Subject:  msg.Header("Subject"),
			Date:     msg.Header("Date"),
			Snippet:  msg.Snippet,
			Body:     decodeMessageText(msg.Payload, bodyLimit),
		})
	}
	return summary
}

// summarizeThread serializes a trimmed thread summary, degrading in fixed
// stages until it fits under the byte ceiling.
func summarizeThread(thread *model.Thread, byteCeiling int) (string, bool) {
	summary := buildThreadSummary(thread, stageOneMessages, stageOneBodyLimit)
	out, _ := json.MarshalIndent(summary, "", "  ")

	if len(out) > byteCeiling {
		summary = buildThreadSummary(thread, stageTwoMessages, stageTwoBodyLimit)
		out, _ = json.MarshalIndent(summary, "", "  ")
	}
	if len(out) > byteCeiling {
		return string(out[:byteCeiling]) + truncationMarker, true
	}
	return string(out), false
}

// decodeMessageText walks the MIME tree collecting decoded text parts,
// strips markup, collapses whitespace, and caps the result.
func decodeMessageText(payload *model.MessagePart, maxChars int) *string {
	if payload == nil {
		return nil
	}
	if maxChars <= 0 {
		maxChars = defaultBodyDecodeLimit
	}

	var texts []string
	var walk func(part *model.MessagePart)
	walk = func(part *model.MessagePart) {
		if part == nil {
			return
		}
		if part.Data != "" && strings.HasPrefix(part.MimeType, "text/") {
			if decoded, err := base64.URLEncoding.DecodeString(part.Data); err == nil {
				text := string(decoded)
				if part.MimeType == "text/html" {
					text = htmlTags.ReplaceAllString(text, " ")
				}
				texts = append(texts, html.UnescapeString(text))
			}
		}
		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(payload)

	combined := strings.TrimSpace(strings.Join(texts, "\n"))
	if combined == "" {
		return nil
	}
	combined = whitespace.ReplaceAllString(combined, " ")
	if len(combined) > maxChars {
		combined = combined[:maxChars] + truncationMarker
	}
	return &combined
}
