// File path: internal/suggest/classifier.go
package suggest

import (
	"regexp"
	"strings"
	"unicode"
)

// Document types recognized by the context tier.
const (
	DocTypeAPIReference = "api_reference"
	DocTypeUserGuide    = "user_guide"
	DocTypeTutorial     = "tutorial"
	DocTypeGeneric      = "generic"
)

var docTypeKeywords = map[string][]string{
	DocTypeAPIReference: {"endpoint", "request", "response", "parameter", "header", "status code", "payload", "schema", "curl", "api"},
	DocTypeUserGuide:    {"click", "select", "settings", "dashboard", "navigate", "menu", "screen", "you can", "option"},
	DocTypeTutorial:     {"step", "first", "next", "finally", "let's", "walkthrough", "follow along", "by the end", "prerequisite"},
}

// Classifier is the context tier: it classifies the surrounding document
// and applies document-type-aware transforms that need more context than a
// single regex but no model call.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

// ClassifyDocument scores keyword families over the document text. The
// explicit DocumentType on the issue wins when present.
func (cl *Classifier) ClassifyDocument(issue CorrectionIssue) string {
	if t := strings.TrimSpace(strings.ToLower(issue.DocumentType)); t != "" {
		return t
	}
	text := strings.ToLower(issue.FullDocumentText)
	if text == "" {
		text = strings.ToLower(issue.Context)
	}
	best, bestScore := DocTypeGeneric, 0
	for docType, keywords := range docTypeKeywords {
		score := 0
		for _, kw := range keywords {
			score += strings.Count(text, kw)
		}
		if score > bestScore {
			best, bestScore = docType, score
		}
	}
	return best
}

// passivePattern captures "<subject> was|were <participle> by <agent>"
// and the agentless "<subject> was|were <participle>" form.
var (
	passiveWithAgent = regexp.MustCompile(`(?i)^(.*?)\b(\w[\w\s]*?)\s+(was|were|is|are)\s+(\w+ed|built|made|sent|written|created|done|given|taken|shown|run)\s+by\s+(.+?)([.!?]?)\s*$`)
	passiveNoAgent   = regexp.MustCompile(`(?i)^(.*?)\b(\w[\w\s]*?)\s+(was|were|is|are)\s+(\w+ed|built|made|sent|written|created|done|given|taken|shown|run)\s*([.!?]?)\s*$`)
)

// Apply runs the document-type-aware transforms. Currently the tier serves
// passive-voice inversion and second-person normalization.
func (cl *Classifier) Apply(issue CorrectionIssue) (string, bool) {
	docType := cl.ClassifyDocument(issue)
	category := issue.Category()
	switch category {
	case "passive-voice", "passive":
		return invertPassive(issue.FlaggedText, docType)
	case "second-person":
		return secondPerson(issue.FlaggedText, docType)
	default:
		return "", false
	}
}

// invertPassive rewrites "X was <verb>ed by Y." as "Y <verb>ed X." When no
// agent is present one is inferred from the document type.
func invertPassive(text, docType string) (string, bool) {
	if m := passiveWithAgent.FindStringSubmatch(text); m != nil {
		subject, verb, agent, closer := strings.TrimSpace(m[2]), m[4], strings.TrimSpace(m[5]), m[6]
		if closer == "" {
			closer = "."
		}
		out := capitalizeFirst(agent) + " " + verb + " " + lowercaseFirst(subject) + closer
		return out, !materiallyEqual(out, text)
	}
	if m := passiveNoAgent.FindStringSubmatch(text); m != nil {
		subject, verb, closer := strings.TrimSpace(m[2]), m[4], m[5]
		if closer == "" {
			closer = "."
		}
		agent := inferredAgent(docType)
		out := agent + " " + verb + " " + lowercaseFirst(subject) + closer
		return out, !materiallyEqual(out, text)
	}
	return "", false
}

func inferredAgent(docType string) string {
	switch docType {
	case DocTypeAPIReference:
		return "The system"
	case DocTypeUserGuide, DocTypeTutorial:
		return "You"
	default:
		return "The system"
	}
}

func lowercaseFirst(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}
	// Keep initialisms like "API responses" as written.
	if len(runes) > 1 && runes[1] >= 'A' && runes[1] <= 'Z' {
		return text
	}
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

var thirdPersonUser = regexp.MustCompile(`(?i)\bthe user (can|should|must|may|will)\b`)

// secondPerson rewrites "the user can ..." to "you can ..." in guides and
// tutorials, where direct address is the house style.
func secondPerson(text, docType string) (string, bool) {
	if docType != DocTypeUserGuide && docType != DocTypeTutorial && docType != DocTypeGeneric {
		return "", false
	}
	out := thirdPersonUser.ReplaceAllStringFunc(text, func(match string) string {
		parts := strings.Fields(match)
		modal := parts[len(parts)-1]
		if strings.HasPrefix(match, "The") {
			return "You " + strings.ToLower(modal)
		}
		return "you " + strings.ToLower(modal)
	})
	if materiallyEqual(out, text) {
		return "", false
	}
	return strings.TrimSpace(out), true
}

func materiallyEqual(a, b string) bool {
	return !materiallyDifferent(a, b)
}
