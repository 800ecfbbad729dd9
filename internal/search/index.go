// Package search provides a small, deterministic, concurrency-safe in-memory
// retrieval index over knowledge documents. It backs reference lookup when no
// remote semantic search service is configured.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options for paragraph filtering, stop-words and caps
//   - Chinese-aware tokenisation: runs of Han characters become overlapping
//     bigrams, other letters/digits become lower-cased words
//   - Immutable after construction (safe for concurrent use)
//   - Deterministic ordering for ties
//
// Scoring uses Jaccard similarity between the query token set and each
// paragraph's token set: score = |Q ∩ P| / |Q ∪ P|.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result is a ranked snippet with its similarity score and source document.
type Result struct {
	Snippet string
	Score   float64
	DocID   string
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

// Document is one source text. It is split into paragraphs on blank lines;
// Markdown table rows are flattened into standalone facts first.
type Document struct {
	ID   string
	Text string
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minParagraphRunes int
	stopwords         map[string]struct{}
	maxDocs           int
}

func defaultConfig() config {
	return config{
		minParagraphRunes: 8,
		stopwords:         nil,
		maxDocs:           0,
	}
}

func WithMinParagraphRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minParagraphRunes = n
		}
	}
}

// WithStopwords drops the given tokens from both sides of the comparison.
// Han stop-words must be given as bigrams to have an effect.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps the number of indexed paragraphs.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type para struct {
	docID  string
	text   string
	tokens map[string]struct{}
}

type index struct {
	cfg   config
	paras []para
}

// NewIndex builds an Index over docs.
func NewIndex(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	idx := &index{cfg: cfg}
	for _, d := range docs {
		for _, p := range SplitParagraphs(FlattenTables(d.Text)) {
			if !idx.add(d.ID, p) {
				return idx
			}
		}
	}
	return idx
}

// NewIndexFromStrings builds an Index directly from a slice of paragraphs
// with no document ids.
func NewIndexFromStrings(paragraphs []string, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	idx := &index{cfg: cfg}
	for _, p := range paragraphs {
		if !idx.add("", p) {
			break
		}
	}
	return idx
}

// add indexes one paragraph and reports whether more may be added.
func (i *index) add(docID, raw string) bool {
	if i.cfg.maxDocs > 0 && len(i.paras) >= i.cfg.maxDocs {
		return false
	}
	t := strings.TrimSpace(normalizeWhitespace(raw))
	if t == "" {
		return true
	}
	if i.cfg.minParagraphRunes > 0 && utf8.RuneCountInString(t) < i.cfg.minParagraphRunes {
		return true
	}
	toks := tokenize(t, i.cfg.stopwords)
	if len(toks) == 0 {
		return true
	}
	i.paras = append(i.paras, para{docID: docID, text: t, tokens: toks})
	return i.cfg.maxDocs <= 0 || len(i.paras) < i.cfg.maxDocs
}

// TopK returns up to k best-matching paragraphs by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	if len(i.paras) == 0 {
		return nil
	}
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		para
		score    float64
		lenRunes int
	}

	buf := make([]scored, 0, min(k*4, len(i.paras)))
	for _, p := range i.paras {
		over := overlap(qTokens, p.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(p.tokens) - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{
			para:     p,
			score:    float64(over) / union,
			lenRunes: utf8.RuneCountInString(p.text),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].text < buf[b].text
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for i := 0; i < k; i++ {
		out[i] = Result{Snippet: buf[i].text, Score: buf[i].score, DocID: buf[i].docID}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

// words splits s into runs of Han characters and runs of other letters or
// digits; everything else separates runs.
func words(s string) []string {
	var out []string
	start, han := -1, false
	flush := func(i int) {
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	for i, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			if start >= 0 && !han {
				flush(i)
			}
			if start < 0 {
				start, han = i, true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start >= 0 && han {
				flush(i)
			}
			if start < 0 {
				start, han = i, false
			}
		default:
			flush(i)
		}
	}
	flush(len(s))
	return out
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	ws := words(strings.ToLower(s))
	if len(ws) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(ws)*2)
	put := func(w string) {
		if stop != nil {
			if _, skip := stop[w]; skip {
				return
			}
		}
		out[w] = struct{}{}
	}
	for _, w := range ws {
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.Is(unicode.Han, r) {
			put(w)
			continue
		}
		runes := []rune(w)
		if len(runes) == 1 {
			put(w)
			continue
		}
		for j := 0; j+1 < len(runes); j++ {
			put(string(runes[j : j+2]))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '　' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

var paraSplitRE = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits text on blank lines and drops empty chunks.
func SplitParagraphs(text string) []string {
	chunks := paraSplitRE.Split(text, -1)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c); t != "" {
			out = append(out, t)
		}
	}
	return out
}
