// File path: internal/suggest/corrector.go
package suggest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/fsnotify/fsnotify"

	"github.com/marginalia-dev/redline/internal/common"
)

// CorrectorRule is one row of the rule table: a pattern, the rule category
// it serves, and a transform. New deterministic rules are data, not code.
type CorrectorRule struct {
	// Pattern is a regular expression matched against the flagged text.
	Pattern string `json:"pattern"`
	// Category ties the rule to issue categories ("*" matches any).
	Category string `json:"category"`
	// Transform is "replace", "sentence_case" or "capitalize_first".
	Transform string `json:"transform"`
	// Replacement feeds the "replace" transform; $1..$n expand groups.
	Replacement string `json:"replacement,omitempty"`
}

type compiledRule struct {
	rule    CorrectorRule
	pattern *regexp.Regexp
}

// Corrector applies the deterministic tier: pattern/template transforms
// with near-zero latency and no external calls. The table can be loaded
// from a JSON file and hot-reloads on file writes.
type Corrector struct {
	mu    sync.RWMutex
	rules []compiledRule
	path  string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// builtinRules cover the low-ambiguity classes served even without a rule
// table file.
var builtinRules = []CorrectorRule{
	{Pattern: `(?i)\bin order to\b`, Category: "wordiness", Transform: "replace", Replacement: "to"},
	{Pattern: `(?i)\bdue to the fact that\b`, Category: "wordiness", Transform: "replace", Replacement: "because"},
	{Pattern: `(?i)\bat this point in time\b`, Category: "wordiness", Transform: "replace", Replacement: "now"},
	{Pattern: `(?i)\butilize\b`, Category: "terminology", Transform: "replace", Replacement: "use"},
	{Pattern: `(?i)\be-mail\b`, Category: "terminology", Transform: "replace", Replacement: "email"},
	{Pattern: `(?i)\bweb site\b`, Category: "terminology", Transform: "replace", Replacement: "website"},
	{Pattern: `(?i)\bcan not\b`, Category: "terminology", Transform: "replace", Replacement: "cannot"},
	{Pattern: `(?i)\bplease note that\b`, Category: "wordiness", Transform: "replace", Replacement: "note that"},
	{Pattern: `.*`, Category: "heading-case", Transform: "sentence_case"},
	{Pattern: `^[a-z]`, Category: "capitalization", Transform: "capitalize_first"},
}

// NewCorrector builds the deterministic tier. With an empty path only the
// builtin table is used; otherwise the file's rules are appended to it and
// the file is watched for changes.
func NewCorrector(path string) (*Corrector, error) {
	c := &Corrector{path: strings.TrimSpace(path)}
	if err := c.reload(); err != nil {
		return nil, err
	}
	if c.path != "" {
		if err := c.watch(); err != nil {
			common.Logger().Warn("suggest: rule table watch failed, hot reload disabled", "path", c.path, "error", err)
		}
	}
	return c, nil
}

func (c *Corrector) reload() error {
	rules := append([]CorrectorRule(nil), builtinRules...)
	if c.path != "" {
		data, err := os.ReadFile(filepath.Clean(c.path))
		if err != nil {
			return fmt.Errorf("read rule table: %w", err)
		}
		var fileRules []CorrectorRule
		if err := json.Unmarshal(data, &fileRules); err != nil {
			return fmt.Errorf("parse rule table: %w", err)
		}
		rules = append(rules, fileRules...)
	}
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("compile rule pattern %q: %w", rule.Pattern, err)
		}
		compiled = append(compiled, compiledRule{rule: rule, pattern: pattern})
	}
	c.mu.Lock()
	c.rules = compiled
	c.mu.Unlock()
	common.Logger().Info("suggest: corrector rule table loaded", "rules", len(compiled), "path", c.path)
	return nil
}

func (c *Corrector) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return err
	}
	c.watcher = watcher
	c.done = make(chan struct{})
	logger := common.Logger()
	go func() {
		for {
			select {
			case <-c.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(c.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := c.reload(); err != nil {
					logger.Warn("suggest: rule table reload failed, keeping previous table", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("suggest: rule table watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the hot-reload watcher.
func (c *Corrector) Close() error {
	if c == nil || c.watcher == nil {
		return nil
	}
	close(c.done)
	return c.watcher.Close()
}

// RuleCount reports the size of the active table.
func (c *Corrector) RuleCount() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

// Apply runs every category-matching rule over the flagged text and
// reports whether the result differs materially.
func (c *Corrector) Apply(issue CorrectionIssue) (string, bool) {
	if c == nil {
		return "", false
	}
	category := issue.Category()
	text := issue.FlaggedText

	c.mu.RLock()
	rules := c.rules
	c.mu.RUnlock()

	for _, entry := range rules {
		if entry.rule.Category != "*" && !strings.EqualFold(entry.rule.Category, category) {
			continue
		}
		switch entry.rule.Transform {
		case "replace":
			text = entry.pattern.ReplaceAllString(text, entry.rule.Replacement)
		case "sentence_case":
			if entry.pattern.MatchString(text) {
				text = sentenceCase(text)
			}
		case "capitalize_first":
			if entry.pattern.MatchString(strings.TrimSpace(text)) {
				text = capitalizeFirst(text)
			}
		}
	}
	// Replacements are lowercase; keep the original sentence-initial capital.
	if text != issue.FlaggedText && startsUpper(issue.FlaggedText) && !startsUpper(text) {
		text = capitalizeFirst(text)
	}
	if !materiallyDifferent(issue.FlaggedText, text) {
		return "", false
	}
	return strings.TrimSpace(text), true
}

func startsUpper(text string) bool {
	for _, r := range strings.TrimSpace(text) {
		return unicode.IsUpper(r)
	}
	return false
}

// sentenceCase lowercases every word except the first and words that look
// like proper initialisms (all-caps or mixed-case kept as written).
func sentenceCase(text string) string {
	words := strings.Fields(text)
	for i, word := range words {
		if i == 0 {
			words[i] = capitalizeFirst(word)
			continue
		}
		if word == strings.ToUpper(word) && len(word) > 1 {
			continue
		}
		if hasInnerUpper(word) {
			continue
		}
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, " ")
}

func hasInnerUpper(word string) bool {
	for i, r := range word {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func capitalizeFirst(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	runes := []rune(trimmed)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
