package knowledge

import "strings"

// defaultSeparators are tried in order, coarsest first, so chunks break at
// paragraph boundaries when possible and mid-word only as a last resort.
var defaultSeparators = []string{"\n\n", "\n", ". ", ", ", " ", ""}

// Splitter cuts document text into overlapping chunks sized for embedding.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter returns a splitter with the given chunk size and overlap, both
// in bytes. Zero or negative values fall back to 1000/200.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 200
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap, separators: defaultSeparators}
}

// Split returns the chunked text. Whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	pieces := s.decompose(text, s.separators)
	return s.merge(pieces)
}

// decompose breaks text into pieces no larger than chunkSize, preferring the
// earliest separator that actually occurs.
func (s *Splitter) decompose(text string, seps []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if len(seps) == 0 || seps[0] == "" {
		return s.hardSplit(text)
	}

	sep := seps[0]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return s.decompose(text, seps[1:])
	}

	var pieces []string
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p == "" {
			continue
		}
		if len(p) > s.chunkSize {
			pieces = append(pieces, s.decompose(p, seps[1:])...)
		} else {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func (s *Splitter) hardSplit(text string) []string {
	step := s.chunkSize - s.overlap
	var out []string
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		out = append(out, text[start:end])
	}
	return out
}

// merge packs pieces into chunks up to chunkSize, seeding each new chunk with
// the tail of the previous one so context carries across the boundary.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(cur.String())
		cur.Reset()
		if chunk == "" {
			return
		}
		chunks = append(chunks, chunk)
		if s.overlap > 0 && len(chunk) > s.overlap {
			cur.WriteString(chunk[len(chunk)-s.overlap:])
		}
	}

	for _, p := range pieces {
		if cur.Len() > 0 && cur.Len()+len(p) > s.chunkSize {
			flush()
		}
		cur.WriteString(p)
	}
	flush()
	return chunks
}
