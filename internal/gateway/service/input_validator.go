package service

import (
	"regexp"
	"strings"
)

// ThreatLevel classifies how suspicious a candidate input is.
type ThreatLevel int

const (
	ThreatLevelNone ThreatLevel = iota
	ThreatLevelLow
	ThreatLevelMedium
	ThreatLevelHigh
	ThreatLevelCritical
)

func (t ThreatLevel) String() string {
	switch t {
	case ThreatLevelNone:
		return "none"
	case ThreatLevelLow:
		return "low"
	case ThreatLevelMedium:
		return "medium"
	case ThreatLevelHigh:
		return "high"
	case ThreatLevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ValidationResult is the validator's verdict on one message.
type ValidationResult struct {
	IsValid        bool
	SanitizedInput string
	ThreatLevel    ThreatLevel
	Message        string
}

// InputValidator classifies a message into a threat level and returns a
// sanitized string or a rejection reason. The gateway branches only on
// IsValid; ThreatLevel is informational.
type InputValidator interface {
	Validate(text string) ValidationResult
}

type patternRule struct {
	pattern *regexp.Regexp
	level   ThreatLevel
}

// patternValidator is a pattern-based prompt-injection and control-token
// detector. Strict mode also rejects medium-level matches.
type patternValidator struct {
	strictMode bool
	rules      []patternRule
	controlSeq *regexp.Regexp
}

// NewInputValidator creates the default pattern-based validator.
func NewInputValidator(strictMode bool) InputValidator {
	rules := []patternRule{
		{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts?)`), ThreatLevelCritical},
		{regexp.MustCompile(`(?i)(reveal|show|print|repeat)\s+(your\s+)?(system\s+)?prompt`), ThreatLevelCritical},
		{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|in)\s`), ThreatLevelHigh},
		{regexp.MustCompile(`(?i)(developer|jailbreak|dan)\s+mode`), ThreatLevelHigh},
		{regexp.MustCompile(`(?i)disregard\s+(your|the)\s+(rules|guidelines|instructions)`), ThreatLevelHigh},
		{regexp.MustCompile(`(?i)<\|?(system|im_start|im_end|endoftext)\|?>`), ThreatLevelHigh},
		{regexp.MustCompile(`(?i)pretend\s+(you\s+are|to\s+be)`), ThreatLevelMedium},
		{regexp.MustCompile(`(?i)(act|behave)\s+as\s+(if|though)`), ThreatLevelMedium},
		{regexp.MustCompile("```.*(system|assistant).*```"), ThreatLevelMedium},
	}
	return &patternValidator{
		strictMode: strictMode,
		rules:      rules,
		controlSeq: regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`),
	}
}

func (v *patternValidator) Validate(text string) ValidationResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ValidationResult{
			IsValid:     false,
			ThreatLevel: ThreatLevelNone,
			Message:     "메시지가 비어 있습니다. 질문을 입력해 주세요.",
		}
	}

	level := ThreatLevelNone
	for _, rule := range v.rules {
		if rule.pattern.MatchString(trimmed) && rule.level > level {
			level = rule.level
		}
	}

	threshold := ThreatLevelHigh
	if v.strictMode {
		threshold = ThreatLevelMedium
	}

	if level >= threshold {
		return ValidationResult{
			IsValid:     false,
			ThreatLevel: level,
			Message:     "보안 정책에 따라 처리할 수 없는 요청입니다. 다른 표현으로 질문해 주세요.",
		}
	}

	sanitized := v.controlSeq.ReplaceAllString(trimmed, "")
	return ValidationResult{
		IsValid:        true,
		SanitizedInput: sanitized,
		ThreatLevel:    level,
	}
}
