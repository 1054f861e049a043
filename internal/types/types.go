// Package types defines the shared data model for the MZ assistant core:
// conversations and their turns, the creations ledger, and the typed results
// of structured generation calls.
package types

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a turn. Closed set.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleError Role = "error"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModel, RoleError:
		return true
	}
	return false
}

// ChatMode selects the response-generation strategy for a message. Closed set.
type ChatMode string

const (
	ModeDefault       ChatMode = "default"
	ModeGoogleSearch  ChatMode = "google_search"
	ModeQuickResponse ChatMode = "quick_response"
	ModeLearning      ChatMode = "learning"
)

// Valid reports whether m is one of the known chat modes.
func (m ChatMode) Valid() bool {
	switch m {
	case ModeDefault, ModeGoogleSearch, ModeQuickResponse, ModeLearning:
		return true
	}
	return false
}

// CreationType tags the kind of artifact a ledger entry tracks.
type CreationType string

const (
	CreationImage       CreationType = "image"
	CreationVideo       CreationType = "video"
	CreationWebsite     CreationType = "website"
	CreationLogo        CreationType = "logo"
	CreationEditedImage CreationType = "edited_image"
	CreationSlides      CreationType = "slides"
	CreationBook        CreationType = "book"
)

// Valid reports whether t is one of the known creation types.
func (t CreationType) Valid() bool {
	switch t {
	case CreationImage, CreationVideo, CreationWebsite, CreationLogo,
		CreationEditedImage, CreationSlides, CreationBook:
		return true
	}
	return false
}

// CreationStatus is the lifecycle state of a ledger entry.
// Transitions are strictly pending -> (completed | failed).
type CreationStatus string

const (
	StatusPending   CreationStatus = "pending"
	StatusCompleted CreationStatus = "completed"
	StatusFailed    CreationStatus = "failed"
)

// Terminal reports whether s is a terminal status.
func (s CreationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// InlineImage is raw image bytes, base64-encoded, plus a media type tag.
type InlineImage struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

// Part is one content part of a turn: either a text payload or an inline
// image payload, never both.
type Part struct {
	Text  string       `json:"text,omitempty"`
	Image *InlineImage `json:"image,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline image content part.
func ImagePart(data, mimeType string) Part {
	return Part{Image: &InlineImage{Data: data, MIMEType: mimeType}}
}

// DebugInfo carries per-response metadata, attached to model turns when
// developer mode is on.
type DebugInfo struct {
	ResponseTimeMs int64  `json:"response_time_ms"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	TotalTokens    int    `json:"total_tokens,omitempty"`
}

// GroundingSource is one cited web reference from a search-grounded response.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Turn is one message within a conversation. Turns are immutable once
// appended; DebugInfo and GroundingSources are write-once fields set when
// the model turn is created.
type Turn struct {
	ID               string            `json:"id"`
	Role             Role              `json:"role"`
	Parts            []Part            `json:"parts"`
	DebugInfo        *DebugInfo        `json:"debug_info,omitempty"`
	GroundingSources []GroundingSource `json:"grounding_sources,omitempty"`
}

// Text returns the concatenated text payloads of the turn.
func (t Turn) Text() string {
	var b strings.Builder
	for _, p := range t.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Conversation is an ordered, append-only message history. A persisted
// conversation always holds at least the seeded greeting turn.
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"` // unix millis, last-modified, sort key
	Messages  []Turn `json:"messages"`
}

// Creation is one entry in the creations ledger. Data is present only when
// the status is completed; Error only when failed.
type Creation struct {
	ID        string          `json:"id"`
	Type      CreationType    `json:"type"`
	Prompt    string          `json:"prompt"`
	Status    CreationStatus  `json:"status"`
	Timestamp int64           `json:"timestamp"` // unix millis, registration time
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// QuizType selects the question style for quiz generation.
type QuizType string

const (
	QuizMultipleChoice QuizType = "multiple-choice"
	QuizTrueFalse      QuizType = "true-false"
)

// QuizQuestion is one generated quiz item.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Answer   string   `json:"answer"`
}

// Slide is one generated presentation slide; Content holds bullet points as
// a single dash-prefixed string.
type Slide struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// BookChapter is one chapter of a generated book plan.
type BookChapter struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// BookContent is the structured result of book-plan generation: a title, a
// stock-photo search query for the cover, and the chapters.
type BookContent struct {
	Title      string        `json:"title"`
	CoverQuery string        `json:"cover_query"`
	Chapters   []BookChapter `json:"chapters"`
}

// VideoAnalysis is the structured result of analyzing a video URL.
type VideoAnalysis struct {
	Summary string         `json:"summary"`
	Quiz    []QuizQuestion `json:"quiz"`
}

// WebTechStack selects the output flavor of website generation.
type WebTechStack string

const (
	StackHTMLCSS       WebTechStack = "html-css"
	StackTailwind      WebTechStack = "tailwind"
	StackReactTailwind WebTechStack = "react-tailwind"
)
