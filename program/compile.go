package program

import (
	"unicode"

	"github.com/coregx/regexvm/internal/conv"
	"github.com/coregx/regexvm/syntax"
)

// Compile lowers a parsed regex into a bytecode program scanning in the
// given direction. The parsed regex is consumed: its matcher table moves
// into the returned program.
func Compile(parsed *syntax.ParsedRegex, flags CompileFlags, dir Direction) (*Program, error) {
	c := &compiler{
		parsed:  parsed,
		flags:   flags,
		forward: dir == Forward,
	}

	c.writeSearchPrefix()
	if _, err := c.compileNode(0); err != nil {
		return nil, err
	}
	if _, err := c.pushInst(OpMatch, 0); err != nil {
		return nil, err
	}

	c.prog.Matchers = parsed.Matchers
	c.prog.SaveCount = parsed.CaptureCount * 2
	c.prog.Direction = dir
	c.prog.StartChars = c.computeStartChars()
	return &c.prog, nil
}

// compiler emits instructions for one program. Forward and backward
// compilation share all of the logic; the direction only affects child
// traversal order for sequences, the assertion swaps, the ahead/behind
// swap for lookarounds, and the order of the two Save writes per capture
// group.
type compiler struct {
	parsed  *syntax.ParsedRegex
	flags   CompileFlags
	forward bool
	prog    Program
}

func (c *compiler) node(index syntax.NodeIndex) *syntax.Node {
	return &c.parsed.Nodes[index]
}

// writeSearchPrefix emits the instruction prefix used in the search use
// case: try the pattern at the current position, otherwise advance the
// candidate start and loop.
func (c *compiler) writeSearchPrefix() {
	c.pushInst(OpSplitPrioritizeChild, SearchPrefixSize)
	c.pushInst(OpFindNextStart, 0)
	c.pushInst(OpSplitPrioritizeParent, 1)
}

func (c *compiler) pushInst(op Opcode, param uint32) (uint32, error) {
	if len(c.prog.Insts) >= MaxInstructions {
		return 0, &CompileError{Err: ErrTooManyInstructions}
	}
	res := conv.IntToUint32(len(c.prog.Insts))
	c.prog.Insts = append(c.prog.Insts, Inst{Op: op, Param: param})
	return res, nil
}

// compileNode emits the node's quantifier frame around its body and
// returns the position of the first emitted instruction.
func (c *compiler) compileNode(index syntax.NodeIndex) (uint32, error) {
	startPos := conv.IntToUint32(len(c.prog.Insts))
	q := c.node(index).Quant
	var gotoEnds []uint32

	if q.AllowsNone() {
		op := OpSplitPrioritizeParent
		if !q.Greedy {
			op = OpSplitPrioritizeChild
		}
		splitPos, err := c.pushInst(op, 0)
		if err != nil {
			return 0, err
		}
		gotoEnds = append(gotoEnds, splitPos)
	}

	innerPos, err := c.compileNodeInner(index)
	if err != nil {
		return 0, err
	}
	// Emit the body again for each additional required repetition.
	for i := 1; i < q.Min; i++ {
		if innerPos, err = c.compileNodeInner(index); err != nil {
			return 0, err
		}
	}

	if q.AllowsInfiniteRepeat() {
		op := OpSplitPrioritizeChild
		if !q.Greedy {
			op = OpSplitPrioritizeParent
		}
		if _, err := c.pushInst(op, innerPos); err != nil {
			return 0, err
		}
	} else {
		// Emit the body as an optional match for the min -> max counts.
		for i := max(1, q.Min); i < q.Max; i++ {
			op := OpSplitPrioritizeParent
			if !q.Greedy {
				op = OpSplitPrioritizeChild
			}
			splitPos, err := c.pushInst(op, 0)
			if err != nil {
				return 0, err
			}
			gotoEnds = append(gotoEnds, splitPos)
			if _, err := c.compileNodeInner(index); err != nil {
				return 0, err
			}
		}
	}

	for _, offset := range gotoEnds {
		c.prog.Insts[offset].Param = conv.IntToUint32(len(c.prog.Insts))
	}
	return startPos, nil
}

// compileNodeInner emits the node's body once, ignoring its quantifier.
func (c *compiler) compileNodeInner(index syntax.NodeIndex) (uint32, error) {
	node := c.node(index)
	startPos := conv.IntToUint32(len(c.prog.Insts))
	ignoreCase := node.IgnoreCase

	// Alternation is the capture carrier; captures record the semantic
	// start before the semantic end regardless of scan direction, so the
	// two Save slots swap under backward compilation.
	save := (node.Op == syntax.OpAlternation || node.Op == syntax.OpSequence) &&
		(node.Value == 0 || (node.Value != syntax.NoCapture && c.flags&FlagNoSubs == 0))
	if save {
		slot := conv.IntToUint32(int(node.Value) * 2)
		if !c.forward {
			slot++
		}
		if _, err := c.pushInst(OpSave, slot); err != nil {
			return 0, err
		}
	}

	var err error
	var gotoInnerEndOffsets []uint32
	switch node.Op {
	case syntax.OpLiteral:
		if ignoreCase {
			_, err = c.pushInst(OpLiteralIgnoreCase, uint32(unicode.ToLower(node.Value)))
		} else {
			_, err = c.pushInst(OpLiteral, uint32(node.Value))
		}

	case syntax.OpAnyChar:
		_, err = c.pushInst(OpAnyChar, 0)

	case syntax.OpMatcher:
		_, err = c.pushInst(OpMatcher, uint32(node.Value))

	case syntax.OpSequence:
		compileChild := func(child syntax.NodeIndex) bool {
			_, err = c.compileNode(child)
			return err == nil
		}
		if c.forward {
			c.parsed.ForEachChild(index, compileChild)
		} else {
			c.parsed.ForEachChildReverse(index, compileChild)
		}

	case syntax.OpAlternation:
		// One prioritize-parent split per alternative except the first,
		// patched below to each alternative's entry point.
		splitPos := conv.IntToUint32(len(c.prog.Insts))
		c.parsed.ForEachChild(index, func(child syntax.NodeIndex) bool {
			if child != index+1 {
				_, err = c.pushInst(OpSplitPrioritizeParent, 0)
			}
			return err == nil
		})
		if err != nil {
			return 0, err
		}
		end := node.ChildrenEnd
		c.parsed.ForEachChild(index, func(child syntax.NodeIndex) bool {
			var pos uint32
			if pos, err = c.compileNode(child); err != nil {
				return false
			}
			if child != index+1 {
				c.prog.Insts[splitPos].Param = pos
				splitPos++
			}
			if c.parsed.Nodes[child].ChildrenEnd != end {
				var jump uint32
				if jump, err = c.pushInst(OpJump, 0); err != nil {
					return false
				}
				gotoInnerEndOffsets = append(gotoInnerEndOffsets, jump)
			}
			return true
		})

	case syntax.OpLookAhead:
		err = c.pushLookaroundInst(index, c.forward, false, false, ignoreCase)
	case syntax.OpNegativeLookAhead:
		err = c.pushLookaroundInst(index, c.forward, true, false, ignoreCase)
	case syntax.OpLookBehind:
		err = c.pushLookaroundInst(index, !c.forward, false, true, ignoreCase)
	case syntax.OpNegativeLookBehind:
		err = c.pushLookaroundInst(index, !c.forward, true, true, ignoreCase)

	case syntax.OpLineStart:
		op := OpLineStart
		if !c.forward {
			op = OpLineEnd
		}
		_, err = c.pushInst(op, 0)
	case syntax.OpLineEnd:
		op := OpLineEnd
		if !c.forward {
			op = OpLineStart
		}
		_, err = c.pushInst(op, 0)

	case syntax.OpWordBoundary:
		_, err = c.pushInst(OpWordBoundary, 0)
	case syntax.OpNotWordBoundary:
		_, err = c.pushInst(OpNotWordBoundary, 0)

	case syntax.OpSubjectBegin:
		op := OpSubjectBegin
		if !c.forward {
			op = OpSubjectEnd
		}
		_, err = c.pushInst(op, 0)
	case syntax.OpSubjectEnd:
		op := OpSubjectEnd
		if !c.forward {
			op = OpSubjectBegin
		}
		_, err = c.pushInst(op, 0)

	case syntax.OpResetStart:
		_, err = c.pushInst(OpSave, 0)
	}
	if err != nil {
		return 0, err
	}

	for _, offset := range gotoInnerEndOffsets {
		c.prog.Insts[offset].Param = conv.IntToUint32(len(c.prog.Insts))
	}

	if save {
		slot := conv.IntToUint32(int(node.Value) * 2)
		if c.forward {
			slot++
		}
		if _, err := c.pushInst(OpSave, slot); err != nil {
			return 0, err
		}
	}

	return startPos, nil
}

// pushLookaroundInst flattens the lookaround body into the shared table
// and emits the instruction. ahead is relative to the scan direction:
// a pattern lookbehind compiled backward scans ahead of the cursor.
// Behind bodies are flattened in reverse so the executor always walks
// the table front to back while the cursor moves away from the match
// boundary.
func (c *compiler) pushLookaroundInst(index syntax.NodeIndex, ahead, negative, reversed, ignoreCase bool) error {
	offset := c.pushLookaround(index, reversed, ignoreCase)
	_, err := c.pushInst(lookaroundOp(ahead, negative, ignoreCase), offset)
	return err
}

func lookaroundOp(ahead, negative, ignoreCase bool) Opcode {
	switch {
	case ahead && !negative && !ignoreCase:
		return OpLookAhead
	case ahead && negative && !ignoreCase:
		return OpNegativeLookAhead
	case !ahead && !negative && !ignoreCase:
		return OpLookBehind
	case !ahead && negative && !ignoreCase:
		return OpNegativeLookBehind
	case ahead && !negative:
		return OpLookAheadIgnoreCase
	case ahead:
		return OpNegativeLookAheadIgnoreCase
	case !negative:
		return OpLookBehindIgnoreCase
	default:
		return OpNegativeLookBehindIgnoreCase
	}
}

func (c *compiler) pushLookaround(index syntax.NodeIndex, reversed, ignoreCase bool) uint32 {
	res := conv.IntToUint32(len(c.prog.Lookarounds))
	writeCode := func(child syntax.NodeIndex) bool {
		node := c.parsed.Nodes[child]
		switch node.Op {
		case syntax.OpLiteral:
			value := node.Value
			if ignoreCase {
				value = unicode.ToLower(value)
			}
			c.prog.Lookarounds = append(c.prog.Lookarounds, value)
		case syntax.OpAnyChar:
			c.prog.Lookarounds = append(c.prog.Lookarounds, LookaroundAnyChar)
		case syntax.OpMatcher:
			c.prog.Lookarounds = append(c.prog.Lookarounds, LookaroundMatcherBase+node.Value)
		}
		return true
	}

	if reversed {
		c.parsed.ForEachChildReverse(index, writeCode)
	} else {
		c.parsed.ForEachChild(index, writeCode)
	}

	c.prog.Lookarounds = append(c.prog.Lookarounds, lookaroundEnd)
	return res
}
