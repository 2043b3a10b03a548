package chunkindex

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Preset is a named chunk size and overlap pair
type Preset struct {
	Size    int
	Overlap int
}

// Presets maps preset names to sizes in characters
var Presets = map[string]Preset{
	"small":  {Size: 200, Overlap: 40},
	"medium": {Size: 500, Overlap: 100},
	"large":  {Size: 1000, Overlap: 200},
}

var (
	headerPattern = regexp.MustCompile(`^(#{1,4})[ \t]+(.+?)[ \t]*#*[ \t]*$`)
	separators    = []string{"\n\n", "\n", " ", ""}
)

// Chunker splits markdown text on headers, then recursively by size.
// Every chunk carries its header breadcrumb as a "Context:" prefix.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithPreset applies a named preset. Unknown names are ignored.
func WithPreset(name string) Option {
	return func(c *Chunker) {
		if p, ok := Presets[name]; ok {
			c.chunkSize = p.Size
			c.overlap = p.Overlap
		}
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkSize returns the configured size
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap
func (c *Chunker) Overlap() int { return c.overlap }

type section struct {
	breadcrumb []string
	body       string
}

// Split returns the chunks of text in document order
func (c *Chunker) Split(text string) []string {
	var chunks []string
	for _, sec := range splitSections(text) {
		prefix := ""
		if len(sec.breadcrumb) > 0 {
			prefix = "Context: " + strings.Join(sec.breadcrumb, " > ") + "\n---\n"
		}
		for _, piece := range c.splitRecursive(sec.body, separators) {
			if chunk := strings.TrimSpace(prefix + strings.TrimSpace(piece)); chunk != "" {
				chunks = append(chunks, chunk)
			}
		}
	}
	return chunks
}

// splitSections cuts text at markdown headers up to level 4, ignoring
// anything inside fenced code blocks. Header lines stay in their section.
func splitSections(text string) []section {
	var (
		sections []section
		headers  [4]string
		current  []string
		inFence  bool
	)

	flush := func() {
		body := strings.TrimSpace(strings.Join(current, "\n"))
		current = nil
		if body == "" {
			return
		}
		var crumb []string
		for _, h := range headers {
			if h != "" {
				crumb = append(crumb, h)
			}
		}
		sections = append(sections, section{breadcrumb: crumb, body: body})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			current = append(current, line)
			continue
		}

		if !inFence {
			if m := headerPattern.FindStringSubmatch(trimmed); m != nil {
				flush()
				level := len(m[1])
				headers[level-1] = strings.TrimSpace(m[2])
				for i := level; i < len(headers); i++ {
					headers[i] = ""
				}
			}
		}
		current = append(current, line)
	}
	flush()

	return sections
}

// splitRecursive splits on the first separator present in text and recurses
// into any part that is still too long.
func (c *Chunker) splitRecursive(text string, seps []string) []string {
	if runeLen(text) <= c.chunkSize {
		return []string{text}
	}

	sep, rest := "", []string(nil)
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep, rest = s, seps[i+1:]
			break
		}
	}
	if sep == "" {
		return c.window(text)
	}

	var (
		out  []string
		good []string
	)
	for _, part := range strings.Split(text, sep) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if runeLen(part) <= c.chunkSize {
			good = append(good, part)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good, sep)...)
			good = nil
		}
		out = append(out, c.splitRecursive(part, rest)...)
	}
	if len(good) > 0 {
		out = append(out, c.merge(good, sep)...)
	}
	return out
}

// merge packs small parts into chunks up to chunkSize, carrying up to
// overlap characters of trailing parts into the next chunk.
func (c *Chunker) merge(parts []string, sep string) []string {
	sepLen := runeLen(sep)

	var (
		out   []string
		cur   []string
		total int
	)
	emit := func() {
		if doc := strings.TrimSpace(strings.Join(cur, sep)); doc != "" {
			out = append(out, doc)
		}
	}

	for _, part := range parts {
		n := runeLen(part)
		joinLen := 0
		if len(cur) > 0 {
			joinLen = sepLen
		}

		if total+joinLen+n > c.chunkSize && len(cur) > 0 {
			emit()
			for len(cur) > 0 && (total > c.overlap || total+sepLen+n > c.chunkSize) {
				total -= runeLen(cur[0])
				if len(cur) > 1 {
					total -= sepLen
				}
				cur = cur[1:]
			}
		}

		if len(cur) > 0 {
			total += sepLen
		}
		cur = append(cur, part)
		total += n
	}
	emit()

	return out
}

// window cuts text into fixed character windows with overlap
func (c *Chunker) window(text string) []string {
	runes := []rune(text)
	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
