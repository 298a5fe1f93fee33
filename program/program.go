// Package program lowers a parsed regular expression into a linear
// bytecode program.
//
// A compiled Program is immutable and safe to share across goroutines;
// executors hold their per-search mutable state separately. The program
// always begins with a three-instruction search prefix that turns it
// into an unanchored searcher: an executor enters at instruction 0 to
// find a match anywhere, or at SearchPrefixSize to require the match to
// begin at the starting position.
package program

import (
	"fmt"
	"strings"

	"github.com/coregx/regexvm/syntax"
)

// Opcode identifies a bytecode instruction.
type Opcode uint8

const (
	// OpLiteral consumes one codepoint and succeeds iff it equals the
	// parameter. The IgnoreCase form compares after lower-casing; its
	// parameter is already lower-cased by the compiler.
	OpLiteral Opcode = iota
	OpLiteralIgnoreCase

	// OpAnyChar consumes one codepoint; it fails only at subject end.
	OpAnyChar

	// OpMatcher consumes one codepoint and succeeds iff matcher
	// Matchers[param] accepts it.
	OpMatcher

	// OpJump transfers control to the parameter unconditionally.
	OpJump

	// OpSplitPrioritizeParent tries the fall-through first, then the
	// parameter; OpSplitPrioritizeChild tries the parameter first.
	OpSplitPrioritizeParent
	OpSplitPrioritizeChild

	// OpSave records the cursor into capture slot param.
	OpSave

	// Zero-width assertions.
	OpLineStart
	OpLineEnd
	OpWordBoundary
	OpNotWordBoundary
	OpSubjectBegin
	OpSubjectEnd

	// Lookarounds match the flattened body starting at table offset
	// param against the cursor in the indicated direction. Negative
	// variants invert the outcome.
	OpLookAhead
	OpNegativeLookAhead
	OpLookBehind
	OpNegativeLookBehind
	OpLookAheadIgnoreCase
	OpNegativeLookAheadIgnoreCase
	OpLookBehindIgnoreCase
	OpNegativeLookBehindIgnoreCase

	// OpFindNextStart advances the candidate start cursor, consulting
	// the start-char oracle when present.
	OpFindNextStart

	// OpMatch accepts.
	OpMatch
)

// Inst is one bytecode instruction: an opcode and a 32-bit parameter.
type Inst struct {
	Op    Opcode
	Param uint32
}

// SearchPrefixSize is the length of the mandatory search prefix.
const SearchPrefixSize = 3

// MaxInstructions is the hard cap on the program length.
const MaxInstructions = 0xFFFF

// Lookaround table codes. Values below LookaroundAnyChar are literal
// codepoints; entries are terminated by lookaroundEnd.
const (
	// LookaroundAnyChar stands for "any codepoint" in a lookaround body.
	LookaroundAnyChar rune = 0xF000

	// LookaroundMatcherBase + k references matcher k.
	LookaroundMatcherBase rune = 0xF0001

	// lookaroundEnd terminates a lookaround body in the shared table.
	lookaroundEnd rune = -1
)

// Direction selects which way the compiled program scans the subject.
type Direction int

const (
	// Forward scans left to right.
	Forward Direction = iota

	// Backward scans right to left; searches report the rightmost
	// match first.
	Backward
)

// CompileFlags adjust compilation.
type CompileFlags uint32

const (
	// FlagNoSubs suppresses capture emission for groups other than the
	// whole match.
	FlagNoSubs CompileFlags = 1 << iota
)

// Program is the compiled form of a regular expression: the instruction
// sequence, the shared lookaround table, the matcher table moved from
// the parser, the number of capture slots (2 per capture group), the
// scan direction, and the optional start-char oracle.
type Program struct {
	Insts       []Inst
	Lookarounds []rune
	Matchers    []syntax.Matcher
	SaveCount   int
	Direction   Direction
	StartChars  *StartChars
}

// LookaroundBody returns the codes of the lookaround body starting at
// the given table offset, without the terminator.
func (p *Program) LookaroundBody(offset uint32) []rune {
	end := int(offset)
	for end < len(p.Lookarounds) && p.Lookarounds[end] != lookaroundEnd {
		end++
	}
	return p.Lookarounds[offset:end]
}

// Dump returns a one-line-per-instruction disassembly of the program.
func (p *Program) Dump() string {
	var b strings.Builder
	for i, inst := range p.Insts {
		fmt.Fprintf(&b, " %03d     ", i)
		switch inst.Op {
		case OpLiteral:
			fmt.Fprintf(&b, "literal %q\n", rune(inst.Param))
		case OpLiteralIgnoreCase:
			fmt.Fprintf(&b, "literal (ignore case) %q\n", rune(inst.Param))
		case OpAnyChar:
			b.WriteString("any char\n")
		case OpMatcher:
			fmt.Fprintf(&b, "matcher %d\n", inst.Param)
		case OpJump:
			fmt.Fprintf(&b, "jump %d\n", inst.Param)
		case OpSplitPrioritizeParent:
			fmt.Fprintf(&b, "split (prioritize parent) %d\n", inst.Param)
		case OpSplitPrioritizeChild:
			fmt.Fprintf(&b, "split (prioritize child) %d\n", inst.Param)
		case OpSave:
			fmt.Fprintf(&b, "save %d\n", inst.Param)
		case OpLineStart:
			b.WriteString("line start\n")
		case OpLineEnd:
			b.WriteString("line end\n")
		case OpWordBoundary:
			b.WriteString("word boundary\n")
		case OpNotWordBoundary:
			b.WriteString("not word boundary\n")
		case OpSubjectBegin:
			b.WriteString("subject begin\n")
		case OpSubjectEnd:
			b.WriteString("subject end\n")
		case OpFindNextStart:
			b.WriteString("find next start\n")
		case OpMatch:
			b.WriteString("match\n")
		default:
			fmt.Fprintf(&b, "%s (%s)\n", lookaroundOpName(inst.Op), p.dumpLookaroundBody(inst.Param))
		}
	}
	return b.String()
}

func lookaroundOpName(op Opcode) string {
	switch op {
	case OpLookAhead:
		return "look ahead"
	case OpNegativeLookAhead:
		return "negative look ahead"
	case OpLookBehind:
		return "look behind"
	case OpNegativeLookBehind:
		return "negative look behind"
	case OpLookAheadIgnoreCase:
		return "look ahead (ignore case)"
	case OpNegativeLookAheadIgnoreCase:
		return "negative look ahead (ignore case)"
	case OpLookBehindIgnoreCase:
		return "look behind (ignore case)"
	case OpNegativeLookBehindIgnoreCase:
		return "negative look behind (ignore case)"
	default:
		return "unknown"
	}
}

func (p *Program) dumpLookaroundBody(offset uint32) string {
	var b strings.Builder
	for _, code := range p.LookaroundBody(offset) {
		switch {
		case code == LookaroundAnyChar:
			b.WriteByte('.')
		case code >= LookaroundMatcherBase:
			fmt.Fprintf(&b, "<matcher %d>", code-LookaroundMatcherBase)
		default:
			b.WriteRune(code)
		}
	}
	return b.String()
}
