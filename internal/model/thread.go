package model

import "strings"

// Thread is a Gmail conversation fetched in full. Immutable once fetched.
type Thread struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// MessageSummary is the lightweight search-result view of a message.
type MessageSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Message is a single mail in a thread with its MIME payload tree.
type Message struct {
	ID       string       `json:"id"`
	ThreadID string       `json:"threadId"`
	Snippet  string       `json:"snippet"`
	Headers  []Header     `json:"headers"`
	Payload  *MessagePart `json:"payload"`
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessagePart mirrors the Gmail payload shape: either a leaf with body
// data or a container with child parts.
type MessagePart struct {
	MimeType     string         `json:"mimeType"`
	Filename     string         `json:"filename"`
	AttachmentID string         `json:"attachmentId"`
	Data         string         `json:"data"`
	Parts        []*MessagePart `json:"parts"`
}

// Header returns the value of the named header, case-insensitively.
func (m *Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
