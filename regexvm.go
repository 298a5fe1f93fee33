// Package regexvm provides a regular-expression engine that compiles
// patterns to bytecode.
//
// The pipeline is parse -> compile -> execute: the parser builds a flat
// AST and a table of character-class matchers, the compiler lowers the
// AST into a linear instruction stream with a start-character oracle,
// and a backtracking executor evaluates the bytecode against UTF-8
// subjects. Programs can be compiled to scan forward or backward; a
// backward program searches from the end of the subject and reports the
// rightmost match first.
//
// Basic usage:
//
//	re, err := regexvm.Compile(`foo(bar)?`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if re.MatchString("raw foobar data") {
//	    fmt.Println("matched")
//	}
//
// A compiled Regex is immutable and safe for concurrent use.
package regexvm

import (
	"unicode/utf8"

	"github.com/coregx/regexvm/prefilter"
	"github.com/coregx/regexvm/program"
	"github.com/coregx/regexvm/syntax"
	"github.com/coregx/regexvm/vm"
)

// Direction selects which way a compiled pattern scans the subject.
type Direction = program.Direction

// Scan directions.
const (
	Forward  = program.Forward
	Backward = program.Backward
)

// CompileFlags adjust compilation.
type CompileFlags = program.CompileFlags

// FlagNoSubs suppresses capture emission for groups other than the
// whole match.
const FlagNoSubs = program.FlagNoSubs

// ExecFlags adjust a single execution; see the vm package for the full
// set.
type ExecFlags = vm.ExecFlags

// Execution flags.
const (
	// Search looks for a match anywhere in the subject; without it a
	// match must span the whole subject unless AnyMatch is set.
	Search = vm.Search

	// AnyMatch accepts a match ending before the subject does.
	AnyMatch = vm.AnyMatch

	// NotBeginOfLine suppresses '^' at the subject edge.
	NotBeginOfLine = vm.NotBeginOfLine

	// NotEndOfLine suppresses '$' at the subject edge.
	NotEndOfLine = vm.NotEndOfLine

	// NoSaves skips capture recording.
	NoSaves = vm.NoSaves
)

// Config controls compilation.
type Config struct {
	Flags     CompileFlags
	Direction Direction
}

// DefaultConfig returns the default configuration: forward scanning
// with captures enabled.
func DefaultConfig() Config {
	return Config{}
}

// Regex is a compiled regular expression.
type Regex struct {
	prog    *program.Program
	machine *vm.VM
	pattern string
}

// Compile compiles a pattern for forward scanning.
func Compile(pattern string) (*Regex, error) {
	return CompileWithConfig(pattern, DefaultConfig())
}

// MustCompile compiles a pattern and panics if it fails. Useful for
// patterns known to be valid at compile time.
func MustCompile(pattern string) *Regex {
	re, err := Compile(pattern)
	if err != nil {
		panic("regexvm: Compile(`" + pattern + "`): " + err.Error())
	}
	return re
}

// CompileWithConfig compiles a pattern with explicit flags and scan
// direction.
func CompileWithConfig(pattern string, config Config) (*Regex, error) {
	parsed, err := syntax.Parse(pattern)
	if err != nil {
		return nil, err
	}
	prog, err := program.Compile(parsed, config.Flags, config.Direction)
	if err != nil {
		if ce, ok := err.(*program.CompileError); ok && ce.Pattern == "" {
			ce.Pattern = pattern
		}
		return nil, err
	}
	pf := prefilter.Build(parsed, prog)
	return &Regex{
		prog:    prog,
		machine: vm.New(prog, pf),
		pattern: pattern,
	}, nil
}

// String returns the source text used to compile the regular expression.
func (r *Regex) String() string {
	return r.pattern
}

// Direction returns the scan direction the pattern was compiled for.
func (r *Regex) Direction() Direction {
	return r.prog.Direction
}

// NumSubexp returns the number of capture groups including the whole
// match, so a pattern with two parenthesized groups returns 3.
func (r *Regex) NumSubexp() int {
	return r.prog.SaveCount / 2
}

// Dump returns a disassembly of the compiled program.
func (r *Regex) Dump() string {
	return r.prog.Dump()
}

// Exec runs the compiled program against b with explicit execution
// flags. It returns the capture slots as byte offsets (-1 for slots
// never written); slots 0 and 1 delimit the whole match.
func (r *Regex) Exec(b []byte, flags ExecFlags) ([]int, bool) {
	return r.machine.Exec(b, flags)
}

// Match reports whether b contains any match of the pattern.
func (r *Regex) Match(b []byte) bool {
	_, ok := r.machine.Exec(b, vm.Search|vm.NoSaves)
	return ok
}

// MatchString reports whether s contains any match of the pattern.
func (r *Regex) MatchString(s string) bool {
	return r.Match([]byte(s))
}

// FindIndex returns the location of the first match in b as a
// two-element slice, or nil if there is no match. A backward pattern
// returns the rightmost match.
func (r *Regex) FindIndex(b []byte) []int {
	saves, ok := r.machine.Exec(b, vm.Search)
	if !ok {
		return nil
	}
	return []int{saves[0], saves[1]}
}

// Find returns the text of the first match in b, or nil.
func (r *Regex) Find(b []byte) []byte {
	loc := r.FindIndex(b)
	if loc == nil {
		return nil
	}
	return b[loc[0]:loc[1]]
}

// FindString returns the text of the first match in s, or "".
func (r *Regex) FindString(s string) string {
	return string(r.Find([]byte(s)))
}

// FindSubmatchIndex returns the index pairs for the first match and all
// capture groups, or nil. Result[2*i : 2*i+2] delimits group i; unset
// groups hold -1.
func (r *Regex) FindSubmatchIndex(b []byte) []int {
	saves, ok := r.machine.Exec(b, vm.Search)
	if !ok {
		return nil
	}
	result := make([]int, len(saves))
	copy(result, saves)
	// Report groups with an unset endpoint as absent.
	for i := 0; i < len(result); i += 2 {
		if result[i] < 0 || result[i+1] < 0 {
			result[i], result[i+1] = -1, -1
		}
	}
	return result
}

// FindSubmatch returns the text of the first match and of all capture
// groups, or nil. Unmatched groups are nil.
func (r *Regex) FindSubmatch(b []byte) [][]byte {
	idx := r.FindSubmatchIndex(b)
	if idx == nil {
		return nil
	}
	result := make([][]byte, len(idx)/2)
	for i := range result {
		if start, end := idx[2*i], idx[2*i+1]; start >= 0 {
			result[i] = b[start:end]
		}
	}
	return result
}

// FindStringSubmatch returns the text of the first match and of all
// capture groups as strings, or nil.
func (r *Regex) FindStringSubmatch(s string) []string {
	m := r.FindSubmatch([]byte(s))
	if m == nil {
		return nil
	}
	result := make([]string, len(m))
	for i, g := range m {
		result[i] = string(g)
	}
	return result
}

// FindAllIndex returns the locations of all successive non-overlapping
// matches in b. If n > 0 at most n matches are returned; n <= 0 means
// all. Only forward patterns iterate left to right; a backward pattern
// iterates right to left.
func (r *Regex) FindAllIndex(b []byte, n int) [][]int {
	if n == 0 {
		return nil
	}

	var result [][]int
	if r.prog.Direction == Forward {
		pos := 0
		for pos <= len(b) {
			saves, ok := r.machine.Exec(b[pos:], vm.Search)
			if !ok {
				break
			}
			start, end := pos+saves[0], pos+saves[1]
			result = append(result, []int{start, end})
			if n > 0 && len(result) >= n {
				break
			}
			if end > pos {
				pos = end
			} else {
				// Empty match: advance one codepoint to make progress.
				_, w := utf8.DecodeRune(b[pos:])
				pos += max(w, 1)
			}
		}
		return result
	}

	limit := len(b)
	for limit >= 0 {
		saves, ok := r.machine.Exec(b[:limit], vm.Search)
		if !ok {
			break
		}
		start, end := saves[0], saves[1]
		result = append(result, []int{start, end})
		if n > 0 && len(result) >= n {
			break
		}
		if start < limit {
			limit = start
		} else {
			_, w := utf8.DecodeLastRune(b[:limit])
			limit -= max(w, 1)
		}
	}
	return result
}

// FindAll returns the text of all successive matches in b; see
// FindAllIndex for the n semantics.
func (r *Regex) FindAll(b []byte, n int) [][]byte {
	indices := r.FindAllIndex(b, n)
	if indices == nil {
		return nil
	}
	result := make([][]byte, len(indices))
	for i, loc := range indices {
		result[i] = b[loc[0]:loc[1]]
	}
	return result
}

// FindAllString returns the text of all successive matches in s.
func (r *Regex) FindAllString(s string, n int) []string {
	matches := r.FindAll([]byte(s), n)
	if matches == nil {
		return nil
	}
	result := make([]string, len(matches))
	for i, m := range matches {
		result[i] = string(m)
	}
	return result
}

// QuoteMeta returns a string that escapes all regular expression
// metacharacters in text; the result matches the literal text.
func QuoteMeta(text string) string {
	const special = `^$\.*+?()[]{}|`

	n := 0
	for _, c := range text {
		for _, s := range special {
			if c == s {
				n++
				break
			}
		}
	}
	if n == 0 {
		return text
	}

	buf := make([]byte, 0, len(text)+n)
	for _, c := range text {
		for _, s := range special {
			if c == s {
				buf = append(buf, '\\')
				break
			}
		}
		buf = utf8.AppendRune(buf, c)
	}
	return string(buf)
}
