package program

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coregx/regexvm/syntax"
)

func compilePattern(t *testing.T, pattern string, flags CompileFlags, dir Direction) *Program {
	t.Helper()
	parsed, err := syntax.Parse(pattern)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", pattern, err)
	}
	prog, err := Compile(parsed, flags, dir)
	if err != nil {
		t.Fatalf("Compile(%q) error: %v", pattern, err)
	}
	return prog
}

// TestCompileFraming checks that every program starts with the search
// prefix and ends with Match, and that all jump and split targets stay
// inside the program.
func TestCompileFraming(t *testing.T) {
	patterns := []string{
		``,
		`a`,
		`a*b`,
		`^(foo|qux|baz)+(bar)?baz$`,
		`(a{3,5}?)a+`,
		`foo\Kbar`,
		`(?<=f)oo(b[ae]r)?(?=baz)`,
		`\Q{}[]*+?\Ea+`,
		`(?i)FOO`,
		`[àb-dX-Z-]{3,5}`,
	}

	for _, pattern := range patterns {
		for _, dir := range []Direction{Forward, Backward} {
			prog := compilePattern(t, pattern, 0, dir)

			wantPrefix := []Inst{
				{Op: OpSplitPrioritizeChild, Param: SearchPrefixSize},
				{Op: OpFindNextStart},
				{Op: OpSplitPrioritizeParent, Param: 1},
			}
			if diff := cmp.Diff(wantPrefix, prog.Insts[:SearchPrefixSize]); diff != "" {
				t.Errorf("%q: search prefix mismatch (-want +got):\n%s", pattern, diff)
			}
			if last := prog.Insts[len(prog.Insts)-1]; last.Op != OpMatch {
				t.Errorf("%q: last instruction = %v, want Match", pattern, last.Op)
			}

			for i, inst := range prog.Insts {
				switch inst.Op {
				case OpJump, OpSplitPrioritizeParent, OpSplitPrioritizeChild:
					if int(inst.Param) >= len(prog.Insts) {
						t.Errorf("%q: instruction %d target %d out of range [0, %d)",
							pattern, i, inst.Param, len(prog.Insts))
					}
				}
			}
		}
	}
}

func opcodes(prog *Program) []Opcode {
	ops := make([]Opcode, len(prog.Insts))
	for i, inst := range prog.Insts {
		ops[i] = inst.Op
	}
	return ops
}

func TestCompileLiteral(t *testing.T) {
	prog := compilePattern(t, `ab`, 0, Forward)

	want := []Opcode{
		OpSplitPrioritizeChild, OpFindNextStart, OpSplitPrioritizeParent,
		OpSave, OpLiteral, OpLiteral, OpSave, OpMatch,
	}
	if diff := cmp.Diff(want, opcodes(prog)); diff != "" {
		t.Fatalf("opcodes mismatch (-want +got):\n%s", diff)
	}
	if prog.Insts[4].Param != 'a' || prog.Insts[5].Param != 'b' {
		t.Errorf("literal params = %d, %d, want 'a', 'b'", prog.Insts[4].Param, prog.Insts[5].Param)
	}
	if prog.Insts[3].Param != 0 || prog.Insts[6].Param != 1 {
		t.Errorf("save slots = %d, %d, want 0, 1", prog.Insts[3].Param, prog.Insts[6].Param)
	}
	if prog.SaveCount != 2 {
		t.Errorf("SaveCount = %d, want 2", prog.SaveCount)
	}
}

func TestCompileBackwardSwaps(t *testing.T) {
	prog := compilePattern(t, `^ab\A$`, 0, Backward)

	want := []Opcode{
		OpSplitPrioritizeChild, OpFindNextStart, OpSplitPrioritizeParent,
		// Children reversed, '^' <-> '$' and '\A' <-> '\z'; the end save
		// slot comes first.
		OpSave, OpLineStart, OpSubjectEnd, OpLiteral, OpLiteral, OpLineEnd, OpSave, OpMatch,
	}
	if diff := cmp.Diff(want, opcodes(prog)); diff != "" {
		t.Fatalf("opcodes mismatch (-want +got):\n%s", diff)
	}
	if prog.Insts[6].Param != 'b' || prog.Insts[7].Param != 'a' {
		t.Errorf("literal order = %c, %c, want 'b', 'a'", prog.Insts[6].Param, prog.Insts[7].Param)
	}
	if prog.Insts[3].Param != 1 || prog.Insts[9].Param != 0 {
		t.Errorf("save slots = %d, %d, want 1, 0", prog.Insts[3].Param, prog.Insts[9].Param)
	}
	if prog.Direction != Backward {
		t.Errorf("Direction = %v, want Backward", prog.Direction)
	}
}

func TestCompileIgnoreCaseLiteral(t *testing.T) {
	prog := compilePattern(t, `(?i)A`, 0, Forward)

	var found bool
	for _, inst := range prog.Insts {
		if inst.Op == OpLiteralIgnoreCase {
			found = true
			if inst.Param != 'a' {
				t.Errorf("param = %c, want lower-cased 'a'", inst.Param)
			}
		}
	}
	if !found {
		t.Error("no Literal_IgnoreCase instruction emitted")
	}
}

func TestCompileAlternation(t *testing.T) {
	prog := compilePattern(t, `a|b|c`, FlagNoSubs, Forward)

	// Two prioritize-parent splits, three literals, two jumps to the
	// block end.
	want := []Opcode{
		OpSplitPrioritizeChild, OpFindNextStart, OpSplitPrioritizeParent,
		OpSave,
		OpSplitPrioritizeParent, OpSplitPrioritizeParent,
		OpLiteral, OpJump,
		OpLiteral, OpJump,
		OpLiteral,
		OpSave, OpMatch,
	}
	if diff := cmp.Diff(want, opcodes(prog)); diff != "" {
		t.Fatalf("opcodes mismatch (-want +got):\n%s", diff)
	}

	// Splits point at the second and third alternatives, jumps at the
	// block end.
	if prog.Insts[4].Param != 8 || prog.Insts[5].Param != 10 {
		t.Errorf("split targets = %d, %d, want 8, 10", prog.Insts[4].Param, prog.Insts[5].Param)
	}
	if prog.Insts[7].Param != 11 || prog.Insts[9].Param != 11 {
		t.Errorf("jump targets = %d, %d, want 11, 11", prog.Insts[7].Param, prog.Insts[9].Param)
	}
}

func TestCompileNoSubs(t *testing.T) {
	prog := compilePattern(t, `(a)(b)`, FlagNoSubs, Forward)

	saves := 0
	for _, inst := range prog.Insts {
		if inst.Op == OpSave {
			saves++
		}
	}
	// Only the whole-match brackets survive.
	if saves != 2 {
		t.Errorf("save count = %d, want 2", saves)
	}
	// SaveCount still reflects the declared capture groups.
	if prog.SaveCount != 6 {
		t.Errorf("SaveCount = %d, want 6", prog.SaveCount)
	}
}

func TestCompileQuantifiers(t *testing.T) {
	count := func(prog *Program, op Opcode) int {
		n := 0
		for _, inst := range prog.Insts {
			if inst.Op == op {
				n++
			}
		}
		return n
	}

	t.Run("exact repeat emits the body n times", func(t *testing.T) {
		prog := compilePattern(t, `a{3}`, FlagNoSubs, Forward)
		if got := count(prog, OpLiteral); got != 3 {
			t.Errorf("literal count = %d, want 3", got)
		}
	})

	t.Run("bounded repeat guards the optional copies", func(t *testing.T) {
		prog := compilePattern(t, `a{2,4}`, FlagNoSubs, Forward)
		if got := count(prog, OpLiteral); got != 4 {
			t.Errorf("literal count = %d, want 4", got)
		}
		if got := count(prog, OpSplitPrioritizeParent); got != 1+2 {
			t.Errorf("split count = %d, want 3 (prefix + 2 guards)", got)
		}
	})

	t.Run("greedy star loops through a child-priority split", func(t *testing.T) {
		prog := compilePattern(t, `a*`, FlagNoSubs, Forward)
		// Whole-match save at 3, entry split at 4, body at 5, back split
		// at 6 pointing at the body.
		if prog.Insts[5].Op != OpLiteral || prog.Insts[6].Op != OpSplitPrioritizeChild {
			t.Fatalf("unexpected layout: %v", opcodes(prog))
		}
		if prog.Insts[6].Param != 5 {
			t.Errorf("back split target = %d, want 5", prog.Insts[6].Param)
		}
		// The entry split skips past the whole block.
		if prog.Insts[4].Op != OpSplitPrioritizeParent || prog.Insts[4].Param != 7 {
			t.Errorf("entry split = %+v, want parent-priority to 7", prog.Insts[4])
		}
	})

	t.Run("reluctant star swaps the priorities", func(t *testing.T) {
		prog := compilePattern(t, `a*?`, FlagNoSubs, Forward)
		if prog.Insts[4].Op != OpSplitPrioritizeChild {
			t.Errorf("entry split = %v, want child-priority", prog.Insts[4].Op)
		}
		if prog.Insts[6].Op != OpSplitPrioritizeParent {
			t.Errorf("back split = %v, want parent-priority", prog.Insts[6].Op)
		}
	})
}

func TestCompileResetStart(t *testing.T) {
	prog := compilePattern(t, `foo\Kbar`, FlagNoSubs, Forward)

	// \K lowers to Save 0 between the two literal runs.
	if prog.Insts[7].Op != OpSave || prog.Insts[7].Param != 0 {
		t.Errorf("instruction 7 = %+v, want Save 0", prog.Insts[7])
	}
}

func TestCompileLookarounds(t *testing.T) {
	t.Run("forward", func(t *testing.T) {
		prog := compilePattern(t, `(?<=f.o)x(?=y\d)`, FlagNoSubs, Forward)

		var ops []Opcode
		for _, inst := range prog.Insts {
			switch inst.Op {
			case OpLookAhead, OpLookBehind, OpNegativeLookAhead, OpNegativeLookBehind:
				ops = append(ops, inst.Op)
			}
		}
		if diff := cmp.Diff([]Opcode{OpLookBehind, OpLookAhead}, ops); diff != "" {
			t.Fatalf("lookaround ops mismatch (-want +got):\n%s", diff)
		}

		// Behind bodies are reversed so the executor walks the table
		// front to back while moving away from the cursor.
		behind := prog.LookaroundBody(0)
		if len(behind) != 3 || behind[0] != 'o' || behind[1] != LookaroundAnyChar || behind[2] != 'f' {
			t.Errorf("behind body = %v, want [o <any> f]", behind)
		}

		ahead := prog.LookaroundBody(4)
		if len(ahead) != 2 || ahead[0] != 'y' || ahead[1] != LookaroundMatcherBase {
			t.Errorf("ahead body = %v, want [y <matcher 0>]", ahead)
		}
	})

	t.Run("backward swaps ahead and behind", func(t *testing.T) {
		prog := compilePattern(t, `(?<=f)o(?=z)`, FlagNoSubs, Backward)

		var ops []Opcode
		for _, inst := range prog.Insts {
			switch inst.Op {
			case OpLookAhead, OpLookBehind:
				ops = append(ops, inst.Op)
			}
		}
		// Children are reversed too: the pattern lookahead comes first
		// and lowers to a scan-relative look behind.
		if diff := cmp.Diff([]Opcode{OpLookBehind, OpLookAhead}, ops); diff != "" {
			t.Fatalf("lookaround ops mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ignore case lowers the table", func(t *testing.T) {
		prog := compilePattern(t, `(?i)(?=Foo)`, FlagNoSubs, Forward)

		body := prog.LookaroundBody(0)
		if string(body) != "foo" {
			t.Errorf("body = %q, want %q", string(body), "foo")
		}

		var found bool
		for _, inst := range prog.Insts {
			if inst.Op == OpLookAheadIgnoreCase {
				found = true
			}
		}
		if !found {
			t.Error("no ignore-case lookahead instruction emitted")
		}
	})
}

func TestCompileInstructionOverflow(t *testing.T) {
	parsed, err := syntax.Parse(`(?:a{1000}){1000}`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	_, err = Compile(parsed, 0, Forward)
	if !errors.Is(err, ErrTooManyInstructions) {
		t.Fatalf("error = %v, want ErrTooManyInstructions", err)
	}
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want *CompileError", err)
	}
}

func TestDump(t *testing.T) {
	prog := compilePattern(t, `a|b`, FlagNoSubs, Forward)

	dump := prog.Dump()
	for _, want := range []string{"find next start", "literal 'a'", "literal 'b'", "jump", "match"} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}
