// Package prefilter provides fast candidate-start filtering for regex
// search.
//
// A prefilter quickly rejects subject positions where no match can
// begin, so the executor's FindNextStart can jump straight to the next
// plausible start instead of trying every position. The builder selects
// a strategy from what the pattern offers:
//
//   - a single required literal prefix -> substring/byte search
//   - an alternation of required literal prefixes -> Aho-Corasick
//   - a start-char oracle -> byte-class scan
//   - otherwise -> no prefilter
//
// A prefilter match is only a candidate; the executor still verifies the
// full pattern at the reported position.
package prefilter

import (
	"bytes"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/regexvm/program"
	"github.com/coregx/regexvm/simd"
	"github.com/coregx/regexvm/syntax"
)

// Prefilter finds candidate match starts.
type Prefilter interface {
	// Find returns the index of the first candidate start at or after
	// start, or -1 if no candidate exists.
	Find(haystack []byte, start int) int
}

const (
	// maxPrefixPatterns caps the alternation width handed to the
	// Aho-Corasick builder.
	maxPrefixPatterns = 32

	// maxPrefixLen caps how much of a literal run becomes the required
	// prefix; longer runs are truncated, which stays correct.
	maxPrefixLen = 16
)

// Build selects the best prefilter for the compiled pattern, or nil when
// none helps. Only forward programs are accelerated; a backward scan
// consults the start-char oracle directly in the executor.
func Build(parsed *syntax.ParsedRegex, prog *program.Program) Prefilter {
	if prog.Direction == program.Backward {
		return nil
	}

	if lits := requiredPrefixes(parsed); len(lits) > 0 {
		if len(lits) == 1 {
			return newLiteral(lits[0])
		}
		if pf := newAhoCorasick(lits); pf != nil {
			return pf
		}
	}

	if prog.StartChars != nil {
		return newStartClass(prog.StartChars)
	}
	return nil
}

// requiredPrefixes returns one mandatory literal prefix per top-level
// alternative, or nil when any alternative lacks one. Every match must
// then begin with one of the returned strings.
func requiredPrefixes(parsed *syntax.ParsedRegex) [][]byte {
	var lits [][]byte
	ok := parsed.ForEachChild(0, func(alt syntax.NodeIndex) bool {
		lit := leadingLiteral(parsed, alt)
		if len(lit) == 0 || len(lits) >= maxPrefixPatterns {
			return false
		}
		lits = append(lits, lit)
		return true
	})
	if !ok {
		return nil
	}
	return lits
}

// leadingLiteral collects the run of case-sensitive literal codepoints an
// alternative must consume first. Zero-width assertions ahead of the run
// are skipped; anything else ends it.
func leadingLiteral(parsed *syntax.ParsedRegex, seq syntax.NodeIndex) []byte {
	var buf []byte
	parsed.ForEachChild(seq, func(child syntax.NodeIndex) bool {
		node := parsed.Nodes[child]
		switch node.Op {
		case syntax.OpLineStart, syntax.OpLineEnd,
			syntax.OpWordBoundary, syntax.OpNotWordBoundary,
			syntax.OpSubjectBegin, syntax.OpSubjectEnd,
			syntax.OpResetStart,
			syntax.OpLookAhead, syntax.OpNegativeLookAhead,
			syntax.OpLookBehind, syntax.OpNegativeLookBehind:
			return len(buf) == 0
		case syntax.OpLiteral:
			if node.IgnoreCase || node.Quant.AllowsNone() {
				return false
			}
			buf = utf8.AppendRune(buf, node.Value)
			return node.Quant.Kind == syntax.QuantOne && len(buf) < maxPrefixLen
		default:
			return false
		}
	})
	return buf
}

// literalPrefilter searches for a single required literal.
type literalPrefilter struct {
	needle []byte
}

func newLiteral(needle []byte) Prefilter {
	return &literalPrefilter{needle: needle}
}

func (p *literalPrefilter) Find(haystack []byte, start int) int {
	if start < 0 || start > len(haystack) {
		return -1
	}
	var idx int
	if len(p.needle) == 1 {
		idx = simd.Memchr(haystack[start:], p.needle[0])
	} else {
		idx = bytes.Index(haystack[start:], p.needle)
	}
	if idx == -1 {
		return -1
	}
	return start + idx
}

// ahoCorasickPrefilter scans for any of the required prefixes with one
// automaton pass.
type ahoCorasickPrefilter struct {
	auto *ahocorasick.Automaton
}

func newAhoCorasick(lits [][]byte) Prefilter {
	builder := ahocorasick.NewBuilder()
	for _, lit := range lits {
		builder.AddPattern(lit)
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &ahoCorasickPrefilter{auto: auto}
}

func (p *ahoCorasickPrefilter) Find(haystack []byte, start int) int {
	if start < 0 || start >= len(haystack) {
		return -1
	}
	m := p.auto.Find(haystack, start)
	if m == nil {
		return -1
	}
	return m.Start
}

// startClassPrefilter scans for the next byte that can begin a matching
// codepoint, derived from the start-char oracle.
type startClassPrefilter struct {
	table [256]bool
}

func newStartClass(sc *program.StartChars) Prefilter {
	p := &startClassPrefilter{}
	for b := 0; b < 0x80; b++ {
		p.table[b] = sc.Map[b]
	}

	// Multi-byte sequences: 0xC2/0xC3 lead exactly the Latin-1 range,
	// every other non-ASCII byte can only reach codepoints the "other"
	// slot covers (including replacement chars from invalid UTF-8).
	latin1 := false
	for cp := 0x80; cp < 0x100; cp++ {
		if sc.Map[cp] {
			latin1 = true
			break
		}
	}
	other := sc.Map[program.StartCharsOther]
	for b := 0x80; b < 0x100; b++ {
		p.table[b] = other
	}
	p.table[0xC2] = latin1 || other
	p.table[0xC3] = latin1 || other
	return p
}

func (p *startClassPrefilter) Find(haystack []byte, start int) int {
	if start < 0 || start > len(haystack) {
		return -1
	}
	idx := simd.MemchrInTable(haystack[start:], &p.table)
	if idx == -1 {
		return -1
	}
	return start + idx
}
