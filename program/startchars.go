package program

import (
	"unicode"

	"github.com/coregx/regexvm/syntax"
)

const startCharCount = 256

// StartCharsOther indexes the oracle slot covering every codepoint
// outside the Latin-1 range.
const StartCharsOther = startCharCount

// StartChars is the start-character oracle: a bitmap with one slot per
// Latin-1 codepoint plus the "other" slot. An executor's FindNextStart
// consults it to skip positions where no match can begin. A compiled
// program carries no oracle when the pattern may match without consuming
// input or when every slot would be set.
type StartChars struct {
	Map [startCharCount + 1]bool
}

// Accepts reports whether a match may begin with r.
func (s *StartChars) Accepts(r rune) bool {
	if r >= 0 && r < startCharCount {
		return s.Map[r]
	}
	return s.Map[StartCharsOther]
}

func (s *StartChars) set(cp rune) {
	if cp < startCharCount {
		s.Map[cp] = true
	} else {
		s.Map[StartCharsOther] = true
	}
}

// computeStartCharsNode accumulates the codepoints that could appear
// first if evaluation reached the node. The return value reports whether
// the node may match without consuming input, in which case a following
// sibling still contributes to the parent's set.
func (c *compiler) computeStartCharsNode(index syntax.NodeIndex, sc *StartChars) bool {
	node := c.node(index)
	switch node.Op {
	case syntax.OpLiteral:
		if node.Value < startCharCount {
			if node.IgnoreCase {
				sc.set(unicode.ToLower(node.Value))
				sc.set(unicode.ToUpper(node.Value))
			} else {
				sc.set(node.Value)
			}
		} else {
			sc.Map[StartCharsOther] = true
		}
		return node.Quant.AllowsNone()

	case syntax.OpAnyChar:
		for i := range sc.Map {
			sc.Map[i] = true
		}
		return node.Quant.AllowsNone()

	case syntax.OpMatcher:
		matcher := c.parsed.Matchers[node.Value]
		for cp := rune(0); cp < startCharCount; cp++ {
			if matcher(cp) {
				sc.Map[cp] = true
			}
		}
		sc.Map[StartCharsOther] = true // stay safe
		return node.Quant.AllowsNone()

	case syntax.OpSequence:
		doesNotConsume := func(child syntax.NodeIndex) bool {
			return c.computeStartCharsNode(child, sc)
		}
		var didNotConsume bool
		if c.forward {
			didNotConsume = c.parsed.ForEachChild(index, doesNotConsume)
		} else {
			didNotConsume = c.parsed.ForEachChildReverse(index, doesNotConsume)
		}
		return didNotConsume || node.Quant.AllowsNone()

	case syntax.OpAlternation:
		allConsumed := !node.Quant.AllowsNone()
		c.parsed.ForEachChild(index, func(child syntax.NodeIndex) bool {
			if c.computeStartCharsNode(child, sc) {
				allConsumed = false
			}
			return true
		})
		return !allConsumed

	default:
		// Assertions and lookarounds are zero-width.
		return true
	}
}

// computeStartChars returns the oracle, or nil when the analysis cannot
// restrict the set of starting positions.
func (c *compiler) computeStartChars() *StartChars {
	var sc StartChars
	if c.computeStartCharsNode(0, &sc) {
		return nil
	}
	for _, set := range sc.Map {
		if !set {
			return &sc
		}
	}
	return nil
}
