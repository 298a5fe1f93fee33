// Package vm executes compiled regex programs.
//
// The executor is a backtracker: it walks the bytecode with an explicit
// frame stack, undoing capture writes through a trail when a branch
// fails, and consults a visited (instruction, position) ledger so that
// no state is explored twice. Split priorities order the exploration,
// which yields the same leftmost, prefer-greedy semantics a threaded
// scheduler would produce; the first accepted match wins.
package vm

import (
	"unicode"
	"unicode/utf8"

	"github.com/coregx/regexvm/prefilter"
	"github.com/coregx/regexvm/program"
	"github.com/coregx/regexvm/simd"
	"github.com/coregx/regexvm/syntax"
)

// ExecFlags adjust a single execution.
type ExecFlags uint32

const (
	// Search looks for a match anywhere in the subject instead of
	// requiring it to span the whole subject. Backward programs search
	// from the end and report the rightmost match.
	Search ExecFlags = 1 << iota

	// AnyMatch accepts a match that begins at the starting position but
	// ends before the subject does.
	AnyMatch

	// NotBeginOfLine suppresses '^' at the subject edge.
	NotBeginOfLine

	// NotEndOfLine suppresses '$' at the subject edge.
	NotEndOfLine

	// NoSaves skips capture recording.
	NoSaves
)

// VM executes one compiled program. A VM holds no mutable state between
// calls; every execution keeps its state on the Exec call frame, so a
// single VM is safe for concurrent use.
type VM struct {
	prog *program.Program
	pf   prefilter.Prefilter
}

// New creates an executor for prog. pf accelerates candidate-start
// scanning and may be nil.
func New(prog *program.Program, pf prefilter.Prefilter) *VM {
	return &VM{prog: prog, pf: pf}
}

// Exec runs the program against subject and returns the capture slots
// as byte offsets (-1 for slots never written) along with whether a
// match was found. Slots 0 and 1 delimit the whole match.
func (m *VM) Exec(subject []byte, flags ExecFlags) ([]int, bool) {
	forward := m.prog.Direction == program.Forward
	if !forward {
		// Instructions were swapped by the compiler so they read
		// relative to the scan direction; the edge-suppression flags
		// must swap the same way.
		swapped := flags &^ (NotBeginOfLine | NotEndOfLine)
		if flags&NotBeginOfLine != 0 {
			swapped |= NotEndOfLine
		}
		if flags&NotEndOfLine != 0 {
			swapped |= NotBeginOfLine
		}
		flags = swapped
	}

	e := &exec{
		prog:    m.prog,
		pf:      m.pf,
		subject: subject,
		flags:   flags,
		forward: forward,
		ascii:   simd.IsASCII(subject),
		saves:   make([]int, m.prog.SaveCount),
		visited: newVisitedSet(len(m.prog.Insts), len(subject)),
	}
	for i := range e.saves {
		e.saves[i] = -1
	}
	return e.run()
}

// frame is one backtracking alternative: where to resume and how much
// of the save trail to undo first.
type frame struct {
	pc       uint32
	pos      int
	trailLen int
}

type saveUndo struct {
	slot uint32
	prev int
}

type exec struct {
	prog    *program.Program
	pf      prefilter.Prefilter
	subject []byte
	flags   ExecFlags
	forward bool
	ascii   bool
	saves   []int
	trail   []saveUndo
	stack   []frame
	visited *visitedSet
}

// failPC marks an exhausted backtracking stack.
const failPC = ^uint32(0)

func (e *exec) run() ([]int, bool) {
	pc := uint32(program.SearchPrefixSize)
	if e.flags&Search != 0 {
		pc = 0
	}
	pos := 0
	if !e.forward {
		pos = len(e.subject)
	}

	for {
		if !e.visited.visit(pc, pos) {
			if pc, pos = e.backtrack(); pc == failPC {
				return nil, false
			}
			continue
		}

		inst := e.prog.Insts[pc]
		ok := true
		switch inst.Op {
		case program.OpLiteral:
			var r rune
			var next int
			if r, next, ok = e.consume(pos); ok && r == rune(inst.Param) {
				pos = next
				pc++
			} else {
				ok = false
			}

		case program.OpLiteralIgnoreCase:
			var r rune
			var next int
			if r, next, ok = e.consume(pos); ok && unicode.ToLower(r) == rune(inst.Param) {
				pos = next
				pc++
			} else {
				ok = false
			}

		case program.OpAnyChar:
			var next int
			if _, next, ok = e.consume(pos); ok {
				pos = next
				pc++
			}

		case program.OpMatcher:
			var r rune
			var next int
			if r, next, ok = e.consume(pos); ok && e.prog.Matchers[inst.Param](r) {
				pos = next
				pc++
			} else {
				ok = false
			}

		case program.OpJump:
			pc = inst.Param

		case program.OpSplitPrioritizeParent:
			e.push(inst.Param, pos)
			pc++

		case program.OpSplitPrioritizeChild:
			e.push(pc+1, pos)
			pc = inst.Param

		case program.OpSave:
			if e.flags&NoSaves == 0 {
				slot := inst.Param
				e.trail = append(e.trail, saveUndo{slot: slot, prev: e.saves[slot]})
				e.saves[slot] = pos
			}
			pc++

		case program.OpLineStart:
			if ok = e.isLineStart(pos); ok {
				pc++
			}

		case program.OpLineEnd:
			if ok = e.isLineEnd(pos); ok {
				pc++
			}

		case program.OpWordBoundary:
			if ok = e.isWordBoundary(pos); ok {
				pc++
			}

		case program.OpNotWordBoundary:
			if ok = !e.isWordBoundary(pos); ok {
				pc++
			}

		case program.OpSubjectBegin:
			if ok = pos == e.scanBegin(); ok {
				pc++
			}

		case program.OpSubjectEnd:
			if ok = pos == e.scanEnd(); ok {
				pc++
			}

		case program.OpFindNextStart:
			var next int
			if next, ok = e.findNextStart(pos); ok {
				pos = next
				pc++
			}

		case program.OpMatch:
			if e.flags&(Search|AnyMatch) != 0 || pos == e.scanEnd() {
				return e.saves, true
			}
			ok = false

		default:
			ahead, negative, ignoreCase := lookaroundKind(inst.Op)
			res := e.lookaround(inst.Param, pos, ahead, ignoreCase)
			if negative {
				res = !res
			}
			if ok = res; ok {
				pc++
			}
		}

		if !ok {
			if pc, pos = e.backtrack(); pc == failPC {
				return nil, false
			}
		}
	}
}

func (e *exec) push(pc uint32, pos int) {
	e.stack = append(e.stack, frame{pc: pc, pos: pos, trailLen: len(e.trail)})
}

func (e *exec) backtrack() (uint32, int) {
	if len(e.stack) == 0 {
		return failPC, 0
	}
	f := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	for len(e.trail) > f.trailLen {
		undo := e.trail[len(e.trail)-1]
		e.trail = e.trail[:len(e.trail)-1]
		e.saves[undo.slot] = undo.prev
	}
	return f.pc, f.pos
}

// scanBegin and scanEnd are the subject edges in scan order: a backward
// program starts at the subject end and stops at the beginning.
func (e *exec) scanBegin() int {
	if e.forward {
		return 0
	}
	return len(e.subject)
}

func (e *exec) scanEnd() int {
	if e.forward {
		return len(e.subject)
	}
	return 0
}

// consume reads the next codepoint in scan order. It reports failure
// only at the scan end.
func (e *exec) consume(pos int) (rune, int, bool) {
	if e.forward {
		if pos >= len(e.subject) {
			return 0, 0, false
		}
		if e.ascii {
			return rune(e.subject[pos]), pos + 1, true
		}
		r, w := utf8.DecodeRune(e.subject[pos:])
		return r, pos + w, true
	}
	if pos <= 0 {
		return 0, 0, false
	}
	if e.ascii {
		return rune(e.subject[pos-1]), pos - 1, true
	}
	r, w := utf8.DecodeLastRune(e.subject[:pos])
	return r, pos - w, true
}

// isLineStart evaluates the LineStart instruction relative to the scan
// direction; the compiler already swapped '^' and '$' for backward
// programs so this reads as pattern semantics in subject order.
func (e *exec) isLineStart(pos int) bool {
	if e.forward {
		if pos == 0 {
			return e.flags&NotBeginOfLine == 0
		}
		return e.subject[pos-1] == '\n'
	}
	if pos == len(e.subject) {
		return e.flags&NotBeginOfLine == 0
	}
	return e.subject[pos] == '\n'
}

func (e *exec) isLineEnd(pos int) bool {
	if e.forward {
		if pos == len(e.subject) {
			return e.flags&NotEndOfLine == 0
		}
		return e.subject[pos] == '\n'
	}
	if pos == 0 {
		return e.flags&NotEndOfLine == 0
	}
	return e.subject[pos-1] == '\n'
}

// isWordBoundary is direction-symmetric: it compares the word-ness of
// the codepoints on either side of the cursor in subject order, with
// positions outside the subject counting as non-word.
func (e *exec) isWordBoundary(pos int) bool {
	before := false
	if pos > 0 {
		r, _ := utf8.DecodeLastRune(e.subject[:pos])
		before = syntax.IsWordChar(r)
	}
	after := false
	if pos < len(e.subject) {
		r, _ := utf8.DecodeRune(e.subject[pos:])
		after = syntax.IsWordChar(r)
	}
	return before != after
}

// findNextStart advances the candidate start cursor by one codepoint and
// then skips positions that cannot begin a match, using the prefilter
// when one is attached and the start-char oracle otherwise.
func (e *exec) findNextStart(pos int) (int, bool) {
	_, base, ok := e.consume(pos)
	if !ok {
		return 0, false
	}

	if e.forward {
		if e.pf != nil {
			if idx := e.pf.Find(e.subject, base); idx >= 0 {
				return idx, true
			}
			return 0, false
		}
		if sc := e.prog.StartChars; sc != nil {
			for base < len(e.subject) {
				r, next, _ := e.consume(base)
				if sc.Accepts(r) {
					break
				}
				base = next
			}
		}
		return base, true
	}

	// Backward: the first codepoint a match consumes at candidate start
	// s is the one ending at s.
	if sc := e.prog.StartChars; sc != nil {
		for base > 0 {
			r, _ := utf8.DecodeLastRune(e.subject[:base])
			if sc.Accepts(r) {
				break
			}
			_, base, _ = e.consume(base)
		}
	}
	return base, true
}

func lookaroundKind(op program.Opcode) (ahead, negative, ignoreCase bool) {
	switch op {
	case program.OpLookAhead:
		return true, false, false
	case program.OpNegativeLookAhead:
		return true, true, false
	case program.OpLookBehind:
		return false, false, false
	case program.OpNegativeLookBehind:
		return false, true, false
	case program.OpLookAheadIgnoreCase:
		return true, false, true
	case program.OpNegativeLookAheadIgnoreCase:
		return true, true, true
	case program.OpLookBehindIgnoreCase:
		return false, false, true
	default:
		return false, true, true
	}
}

// lookaround matches the flattened body at the given table offset
// against the cursor. ahead is relative to the scan direction, so the
// effective subject direction is "ahead equals scanning forward"; the
// compiler oriented each body so it is always walked front to back.
func (e *exec) lookaround(offset uint32, pos int, ahead, ignoreCase bool) bool {
	scanForward := ahead == e.forward
	i := pos
	for _, code := range e.prog.LookaroundBody(offset) {
		var r rune
		if scanForward {
			if i >= len(e.subject) {
				return false
			}
			var w int
			r, w = utf8.DecodeRune(e.subject[i:])
			i += w
		} else {
			if i <= 0 {
				return false
			}
			var w int
			r, w = utf8.DecodeLastRune(e.subject[:i])
			i -= w
		}
		if ignoreCase {
			r = unicode.ToLower(r)
		}
		switch {
		case code == program.LookaroundAnyChar:
			// any codepoint
		case code >= program.LookaroundMatcherBase:
			if !e.prog.Matchers[code-program.LookaroundMatcherBase](r) {
				return false
			}
		default:
			if r != code {
				return false
			}
		}
	}
	return true
}
