package detect

import (
	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/forwardparser"
)

// GenericDetector delegates to forwardparser and is tried as the fallback dialect
type GenericDetector struct{}

// NewGenericDetector creates the separator-based fallback detector
func NewGenericDetector() *GenericDetector {
	return &GenericDetector{}
}

// Name implements core.Detector
func (d *GenericDetector) Name() string { return "generic" }

// Priority implements core.Detector
func (d *GenericDetector) Priority() int { return 100 }

// Detect implements core.Detector
func (d *GenericDetector) Detect(text string) core.DetectionResult {
	res := forwardparser.Read(text)
	if !res.Forwarded {
		return core.NoDetection()
	}

	email := &core.ForwardedEmail{
		From:    core.Address{Name: res.Email.From.Name, Address: res.Email.From.Address},
		Subject: res.Email.Subject,
		Date:    res.Email.Date,
		Body:    res.Email.Body,
	}
	if len(res.Email.To) > 0 {
		email.To = &core.Address{Name: res.Email.To[0].Name, Address: res.Email.To[0].Address}
	}

	return core.DetectionResult{
		Found:      true,
		Email:      email,
		Message:    res.Message,
		Confidence: core.ConfidenceHigh,
	}
}
