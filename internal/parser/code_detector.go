package parser

import (
	"regexp"
	"strings"

	"github.com/mixelka/tempinbox/pkg/models"
)

// CodeDetector detects verification codes in text
type CodeDetector struct {
	patterns []*codePattern
}

type codePattern struct {
	Type  string
	Regex *regexp.Regexp
}

// NewCodeDetector creates a new code detector
func NewCodeDetector() *CodeDetector {
	return &CodeDetector{
		patterns: []*codePattern{
			// OTP codes with keyword (4-8 digits)
			{
				Type:  "otp",
				Regex: regexp.MustCompile(`(?i)(?:code|otp|pin|passcode|password)[\s:\-]*(\d{4,8})\b`),
			},
			// Verification codes
			{
				Type:  "verification",
				Regex: regexp.MustCompile(`(?i)(?:verification|verify|confirm|confirmation|activation)[\s\w]*?[\s:\-]+(\d{4,8})\b`),
			},
			// Security codes
			{
				Type:  "security",
				Regex: regexp.MustCompile(`(?i)(?:security|2fa|two.factor)[\s\w]*?[\s:\-]+(\d{4,8})\b`),
			},
			// Standalone numeric codes on their own line
			{
				Type:  "code",
				Regex: regexp.MustCompile(`(?m)^\s*(\d{4,8})\s*$`),
			},
			// Alphanumeric codes
			{
				Type:  "code",
				Regex: regexp.MustCompile(`(?i)\bcode[\s:\-]*([A-Z0-9]{4,12})\b`),
			},
			// Token/key patterns
			{
				Type:  "token",
				Regex: regexp.MustCompile(`(?i)(?:token|key)[\s:\-]+([A-Za-z0-9\-_]{8,32})\b`),
			},
		},
	}
}

// DetectCodes finds verification codes in text, first match per value wins
func (d *CodeDetector) DetectCodes(text string) []models.DetectedCode {
	var codes []models.DetectedCode
	seen := make(map[string]bool)

	for _, pattern := range d.patterns {
		for _, match := range pattern.Regex.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			code := strings.TrimSpace(match[1])
			if seen[code] || len(code) < 4 {
				continue
			}
			seen[code] = true
			codes = append(codes, models.DetectedCode{
				Type:  pattern.Type,
				Value: code,
			})
		}
	}

	return codes
}
