// File path: internal/corpus/chunker.go
package corpus

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/marginalia-dev/redline/internal/common"
)

// ChunkerConfig bounds the size of emitted chunks and the amount of
// cross-chunk overlap context attached to them. Token counts are
// whitespace-delimited word counts; the same measure is used everywhere so
// the [Min,Max] band stays consistent.
type ChunkerConfig struct {
	TargetTokens  int `json:"target_tokens"`
	MinTokens     int `json:"min_tokens"`
	MaxTokens     int `json:"max_tokens"`
	OverlapTokens int `json:"overlap_tokens"`
}

// DefaultChunkerConfig returns the baseline sizing band.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		TargetTokens:  220,
		MinTokens:     48,
		MaxTokens:     360,
		OverlapTokens: 75,
	}
}

func (c ChunkerConfig) withDefaults() ChunkerConfig {
	defaults := DefaultChunkerConfig()
	if c.TargetTokens <= 0 {
		c.TargetTokens = defaults.TargetTokens
	}
	if c.MinTokens <= 0 {
		c.MinTokens = defaults.MinTokens
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaults.MaxTokens
	}
	if c.MaxTokens < c.MinTokens {
		c.MaxTokens = c.MinTokens
	}
	if c.TargetTokens > c.MaxTokens {
		c.TargetTokens = c.MaxTokens
	}
	if c.OverlapTokens < 0 {
		c.OverlapTokens = defaults.OverlapTokens
	}
	return c
}

// Chunker splits reference documents into sized, metadata-rich passages.
type Chunker struct {
	cfg ChunkerConfig
}

// NewChunker constructs a chunker with the provided sizing configuration.
func NewChunker(cfg ChunkerConfig) *Chunker {
	return &Chunker{cfg: cfg.withDefaults()}
}

// Chunk splits the document text into ordered chunks. The pipeline is:
// structural partition, sentence grouping inside each section, size
// enforcement against the [Min,Max] band, then overlap attachment.
func (c *Chunker) Chunk(doc Document) ([]Chunk, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return nil, fmt.Errorf("%w: document id required", ErrInvalidInput)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: empty document text", ErrInvalidInput)
	}
	if !utf8.ValidString(doc.Text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}

	sections := partitionSections(doc.Text)
	var chunks []Chunk
	for _, section := range sections {
		for _, block := range c.coalesceListItems(section.blocks) {
			texts := c.splitBlock(block)
			for _, text := range texts {
				chunks = append(chunks, Chunk{
					DocID:        doc.ID,
					Text:         text,
					TokenCount:   countTokens(text),
					Structural:   block.kind,
					SectionTitle: section.title,
					SectionLevel: section.level,
					RuleTags:     append([]string(nil), doc.RuleTags...),
				})
			}
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunkable content", ErrInvalidInput)
	}
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].ID = BuildChunkID(doc.ID, i, chunks[i].Text)
	}
	c.attachOverlap(chunks)
	common.Logger().Debug("corpus: chunked document", "doc", doc.ID, "chunks", len(chunks))
	return chunks, nil
}

// splitBlock turns one structural block into one or more chunk texts obeying
// the token band. Code blocks and headings pass through whole; their
// structural type marks them as exempt from the band.
func (c *Chunker) splitBlock(block sectionBlock) []string {
	tokens := countTokens(block.text)
	if block.kind == StructuralCodeBlock || block.kind == StructuralHeading {
		return []string{block.text}
	}
	// A block already under the floor is still emitted as a single chunk:
	// completeness wins over the minimum.
	if tokens <= c.cfg.MaxTokens {
		return []string{block.text}
	}
	sentences := splitSentences(block.text)
	if len(sentences) <= 1 {
		// A single oversized sentence is emitted whole.
		return []string{block.text}
	}
	groups := c.groupSentences(sentences)
	groups = c.enforceBounds(groups)
	out := make([]string, 0, len(groups))
	for _, group := range groups {
		out = append(out, strings.Join(group, " "))
	}
	return out
}

// coalesceListItems joins runs of adjacent list items so short items do not
// each become a chunk below the floor. A run is cut when it reaches the
// target size.
func (c *Chunker) coalesceListItems(blocks []sectionBlock) []sectionBlock {
	out := make([]sectionBlock, 0, len(blocks))
	for _, block := range blocks {
		if block.kind != StructuralListItem {
			out = append(out, block)
			continue
		}
		if n := len(out); n > 0 && out[n-1].kind == StructuralListItem &&
			countTokens(out[n-1].text)+countTokens(block.text) <= c.cfg.TargetTokens {
			out[n-1].text += "\n" + block.text
			continue
		}
		out = append(out, block)
	}
	return out
}

// groupSentences greedily clusters adjacent sentences while the running
// group stays under the target size. A sentence also joins the open group
// when a continuation heuristic fires: short sentence, discourse marker,
// pronoun lead, or lexical overlap with the previous sentence.
func (c *Chunker) groupSentences(sentences []string) [][]string {
	var groups [][]string
	var current []string
	currentTokens := 0
	for i, sentence := range sentences {
		tokens := countTokens(sentence)
		if len(current) == 0 {
			current = []string{sentence}
			currentTokens = tokens
			continue
		}
		join := currentTokens+tokens <= c.cfg.TargetTokens
		if !join && currentTokens+tokens <= c.cfg.MaxTokens {
			join = continuesPrevious(sentences[i-1], sentence)
		}
		if join {
			current = append(current, sentence)
			currentTokens += tokens
			continue
		}
		groups = append(groups, current)
		current = []string{sentence}
		currentTokens = tokens
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// enforceBounds merges undersized neighbouring groups and splits oversized
// ones so every group except possibly the last sits inside [Min,Max]. An
// undersized group merges backward when the predecessor has room, forward
// otherwise; it survives alone only when both neighbours are full.
func (c *Chunker) enforceBounds(groups [][]string) [][]string {
	merged := make([][]string, 0, len(groups))
	for i := 0; i < len(groups); i++ {
		group := groups[i]
		tokens := groupTokens(group)
		if tokens < c.cfg.MinTokens {
			if len(merged) > 0 && groupTokens(merged[len(merged)-1])+tokens <= c.cfg.MaxTokens {
				merged[len(merged)-1] = append(merged[len(merged)-1], group...)
				continue
			}
			if i+1 < len(groups) && tokens+groupTokens(groups[i+1]) <= c.cfg.MaxTokens {
				groups[i+1] = append(append([]string(nil), group...), groups[i+1]...)
				continue
			}
		}
		merged = append(merged, group)
	}
	var out [][]string
	for _, group := range merged {
		out = append(out, c.splitOversized(group)...)
	}
	return out
}

func (c *Chunker) splitOversized(group []string) [][]string {
	if groupTokens(group) <= c.cfg.MaxTokens || len(group) == 1 {
		return [][]string{group}
	}
	var out [][]string
	var current []string
	currentTokens := 0
	for _, sentence := range group {
		tokens := countTokens(sentence)
		if len(current) > 0 && currentTokens+tokens > c.cfg.MaxTokens {
			out = append(out, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// attachOverlap copies trailing context from the previous chunk and leading
// context from the next chunk into the auxiliary overlap fields.
func (c *Chunker) attachOverlap(chunks []Chunk) {
	if c.cfg.OverlapTokens <= 0 {
		return
	}
	for i := range chunks {
		if i > 0 {
			chunks[i].OverlapBefore = tailTokens(chunks[i-1].Text, c.cfg.OverlapTokens)
		}
		if i < len(chunks)-1 {
			chunks[i].OverlapAfter = headTokens(chunks[i+1].Text, c.cfg.OverlapTokens)
		}
	}
}

type sectionBlock struct {
	kind StructuralType
	text string
}

type documentSection struct {
	title  string
	level  int
	blocks []sectionBlock
}

var (
	headingPattern  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	listItemPattern = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
)

// partitionSections walks the document line by line, starting a new section
// at every heading and collecting paragraph, list-item and fenced-code
// blocks. A document with no structural markers becomes one default section.
func partitionSections(text string) []documentSection {
	lines := strings.Split(text, "\n")
	sections := []documentSection{{}}
	var paragraph []string
	var code []string
	inCode := false

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(paragraph, " "))
		paragraph = nil
		if joined == "" {
			return
		}
		last := len(sections) - 1
		sections[last].blocks = append(sections[last].blocks, sectionBlock{kind: StructuralParagraph, text: joined})
	}

	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				last := len(sections) - 1
				sections[last].blocks = append(sections[last].blocks, sectionBlock{
					kind: StructuralCodeBlock,
					text: strings.Join(code, "\n"),
				})
				code = nil
				inCode = false
			} else {
				flushParagraph()
				inCode = true
			}
			continue
		}
		if inCode {
			code = append(code, line)
			continue
		}
		if match := headingPattern.FindStringSubmatch(trimmed); match != nil {
			flushParagraph()
			sections = append(sections, documentSection{
				title: strings.TrimSpace(match[2]),
				level: len(match[1]),
			})
			last := len(sections) - 1
			sections[last].blocks = append(sections[last].blocks, sectionBlock{kind: StructuralHeading, text: strings.TrimSpace(match[2])})
			continue
		}
		if listItemPattern.MatchString(line) {
			flushParagraph()
			item := listItemPattern.ReplaceAllString(line, "")
			if strings.TrimSpace(item) != "" {
				last := len(sections) - 1
				sections[last].blocks = append(sections[last].blocks, sectionBlock{kind: StructuralListItem, text: strings.TrimSpace(item)})
			}
			continue
		}
		if trimmed == "" {
			flushParagraph()
			continue
		}
		paragraph = append(paragraph, trimmed)
	}
	if inCode && len(code) > 0 {
		// Unterminated fence; keep the content rather than dropping it.
		last := len(sections) - 1
		sections[last].blocks = append(sections[last].blocks, sectionBlock{kind: StructuralCodeBlock, text: strings.Join(code, "\n")})
	}
	flushParagraph()

	out := sections[:0]
	for _, section := range sections {
		if len(section.blocks) == 0 {
			continue
		}
		out = append(out, section)
	}
	return out
}

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

var abbreviations = map[string]struct{}{
	"e.g.": {}, "i.e.": {}, "etc.": {}, "vs.": {}, "dr.": {}, "mr.": {},
	"mrs.": {}, "ms.": {}, "no.": {}, "fig.": {}, "cf.": {},
}

// splitSentences cuts text at sentence terminators followed by whitespace,
// holding back splits after common abbreviations.
func splitSentences(text string) []string {
	matches := sentenceEnd.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	var sentences []string
	start := 0
	for _, match := range matches {
		candidate := strings.TrimSpace(text[start:match[1]])
		if candidate == "" {
			continue
		}
		fields := strings.Fields(candidate)
		lastWord := strings.ToLower(fields[len(fields)-1])
		if _, abbrev := abbreviations[lastWord]; abbrev {
			continue
		}
		sentences = append(sentences, candidate)
		start = match[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	if len(sentences) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return sentences
}

var discourseMarkers = map[string]struct{}{
	"however": {}, "therefore": {}, "moreover": {}, "furthermore": {},
	"additionally": {}, "consequently": {}, "instead": {}, "thus": {},
	"also": {}, "finally": {}, "similarly": {}, "otherwise": {},
}

var leadingPronouns = map[string]struct{}{
	"it": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"they": {}, "he": {}, "she": {}, "we": {},
}

const shortSentenceTokens = 8

// continuesPrevious reports whether the sentence should stay attached to the
// previous one even though the target size has been reached.
func continuesPrevious(prev, sentence string) bool {
	fields := strings.Fields(sentence)
	if len(fields) == 0 {
		return false
	}
	if len(fields) <= shortSentenceTokens {
		return true
	}
	first := strings.ToLower(strings.Trim(fields[0], ",;:"))
	if _, ok := discourseMarkers[first]; ok {
		return true
	}
	if _, ok := leadingPronouns[first]; ok {
		return true
	}
	return lexicalOverlap(prev, sentence) >= 2
}

// lexicalOverlap counts distinct content words shared by two sentences.
func lexicalOverlap(a, b string) int {
	seen := make(map[string]struct{})
	for _, word := range contentWords(a) {
		seen[word] = struct{}{}
	}
	count := 0
	counted := make(map[string]struct{})
	for _, word := range contentWords(b) {
		if _, dup := counted[word]; dup {
			continue
		}
		if _, ok := seen[word]; ok {
			count++
			counted[word] = struct{}{}
		}
	}
	return count
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "with": {}, "as": {}, "by": {}, "at": {}, "that": {}, "this": {},
	"it": {}, "from": {}, "not": {},
}

func contentWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, field := range fields {
		if len(field) < 3 {
			continue
		}
		if _, stop := stopWords[field]; stop {
			continue
		}
		out = append(out, field)
	}
	return out
}

func countTokens(text string) int {
	return len(strings.Fields(text))
}

func groupTokens(group []string) int {
	total := 0
	for _, sentence := range group {
		total += countTokens(sentence)
	}
	return total
}

func tailTokens(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) <= n {
		return text
	}
	return strings.Join(fields[len(fields)-n:], " ")
}

func headTokens(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) <= n {
		return text
	}
	return strings.Join(fields[:n], " ")
}
