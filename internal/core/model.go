package core

import (
	"strings"
	"time"
)

// Confidence is the certainty a detector attaches to a match
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// History entry flags
const (
	FlagLevelRoot          = "level:root"
	FlagLevelDeepest       = "level:deepest"
	FlagTrustMediumInline  = "trust:medium_inline"
	FlagTrustHighMIME      = "trust:high_mime"
	FlagSilentForward      = "content:silent_forward"
	FlagDateUnparseable    = "date:unparseable"
	FlagMethodPrefix       = "method:"
	WarningNoForwardedBody = "No forwarded content detected"
)

// Address is a mailbox split into display name and address
type Address struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// IsEmpty reports whether neither field carries text
func (a Address) IsEmpty() bool {
	return strings.TrimSpace(a.Name) == "" && strings.TrimSpace(a.Address) == ""
}

// String renders the address as `Name <address>`
func (a Address) String() string {
	switch {
	case a.Name != "" && a.Address != "":
		return a.Name + " <" + a.Address + ">"
	case a.Address != "":
		return a.Address
	default:
		return a.Name
	}
}

// Attachment describes a file found in a MIME part or an inline marker
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// HistoryEntry is one unwrapped level of a forward chain
type HistoryEntry struct {
	From        *Address     `json:"from,omitempty"`
	To          *Address     `json:"to,omitempty"`
	Subject     string       `json:"subject,omitempty"`
	DateRaw     string       `json:"date_raw,omitempty"`
	DateISO     string       `json:"date_iso,omitempty"`
	Text        string       `json:"text"`
	Depth       int          `json:"depth"`
	Flags       []string     `json:"flags"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// AddFlag adds a flag once, keeping insertion order
func (h *HistoryEntry) AddFlag(flag string) {
	if h.HasFlag(flag) {
		return
	}
	h.Flags = append(h.Flags, flag)
}

// HasFlag reports whether the flag is set
func (h *HistoryEntry) HasFlag(flag string) bool {
	for _, f := range h.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Method returns the value of the first method: flag
func (h *HistoryEntry) Method() (string, bool) {
	for _, f := range h.Flags {
		if strings.HasPrefix(f, FlagMethodPrefix) {
			return strings.TrimPrefix(f, FlagMethodPrefix), true
		}
	}
	return "", false
}

// AddAttachments appends attachments whose filename is not present yet
func (h *HistoryEntry) AddAttachments(atts []Attachment) {
	h.Attachments = MergeAttachments(h.Attachments, atts)
}

// MergeAttachments appends extra to base, skipping filenames already in base
func MergeAttachments(base, extra []Attachment) []Attachment {
	seen := make(map[string]bool, len(base))
	for _, a := range base {
		seen[a.Filename] = true
	}
	for _, a := range extra {
		if seen[a.Filename] {
			continue
		}
		seen[a.Filename] = true
		base = append(base, a)
	}
	return base
}

// Diagnostics reports how the chain was unwrapped
type Diagnostics struct {
	Method   string   `json:"method"`
	Depth    int      `json:"depth"`
	ParsedOK bool     `json:"parsedOk"`
	Warnings []string `json:"warnings"`
}

// AddWarning appends a warning unless the exact text is already recorded
func (d *Diagnostics) AddWarning(w string) {
	for _, existing := range d.Warnings {
		if existing == w {
			return
		}
	}
	d.Warnings = append(d.Warnings, w)
}

// ConfidenceResult is the scorer's audit of a detected depth
type ConfidenceResult struct {
	Score       int            `json:"score"`
	Description string         `json:"description"`
	Ratio       float64        `json:"ratio"`
	EmailCount  int            `json:"email_count"`
	SenderCount int            `json:"sender_count"`
	QuoteDepth  int            `json:"quote_depth"`
	Signals     map[string]int `json:"signals"`
	Reasons     []string       `json:"reasons"`
}

// ChainReview is an independent estimate of the chain returned by an LLM
type ChainReview struct {
	Depth           int       `json:"depth"`
	OriginalFrom    string    `json:"original_from"`
	OriginalSubject string    `json:"original_subject"`
	Explanation     string    `json:"explanation"`
	ModelUsed       string    `json:"model_used"`
	ReviewedAt      time.Time `json:"reviewed_at"`
}

// Result is the outcome of one extraction
type Result struct {
	ID          string            `json:"id"`
	From        *Address          `json:"from"`
	To          *Address          `json:"to"`
	Subject     string            `json:"subject,omitempty"`
	DateRaw     string            `json:"date_raw,omitempty"`
	DateISO     string            `json:"date_iso,omitempty"`
	Text        string            `json:"text"`
	FullBody    string            `json:"full_body"`
	Attachments []Attachment      `json:"attachments"`
	History     []HistoryEntry    `json:"history"`
	Diagnostics Diagnostics       `json:"diagnostics"`
	Confidence  *ConfidenceResult `json:"confidence"`
	Review      *ChainReview      `json:"review,omitempty"`
}

// ForwardedEmail is the header block and body a detector matched.
// A From or To that was only available as a raw string is carried in Address
// and split by the address normalizer.
type ForwardedEmail struct {
	From    Address
	To      *Address
	Subject string
	Date    string
	Body    string
}

// DetectionResult is what a detector reports for one text
type DetectionResult struct {
	Found      bool
	Email      *ForwardedEmail
	Message    string
	Detector   string
	Confidence Confidence
}

// NoDetection is the result for text without a recognizable forward
func NoDetection() DetectionResult {
	return DetectionResult{Found: false, Confidence: ConfidenceLow}
}

// HasSender reports whether the match carries a usable from
func (r DetectionResult) HasSender() bool {
	return r.Found && r.Email != nil && !r.Email.From.IsEmpty()
}

// Options configures one extraction
type Options struct {
	MaxDepth        int
	Timeout         time.Duration
	SkipMIMELayer   bool
	CustomDetectors []Detector
}

// CacheEntry is a stored extraction result
type CacheEntry struct {
	Key       string
	Result    []byte
	Depth     int
	Score     int
	CreatedAt time.Time
	ExpiresAt time.Time
}
