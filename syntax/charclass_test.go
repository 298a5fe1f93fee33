package syntax

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeRanges(t *testing.T) {
	tests := []struct {
		name   string
		ranges []CharRange
		want   []CharRange
	}{
		{
			name:   "empty",
			ranges: nil,
			want:   nil,
		},
		{
			name:   "disjoint stay put",
			ranges: []CharRange{{'a', 'c'}, {'x', 'z'}},
			want:   []CharRange{{'a', 'c'}, {'x', 'z'}},
		},
		{
			name:   "unsorted input",
			ranges: []CharRange{{'x', 'z'}, {'a', 'c'}},
			want:   []CharRange{{'a', 'c'}, {'x', 'z'}},
		},
		{
			name:   "overlap merges",
			ranges: []CharRange{{'a', 'f'}, {'d', 'k'}},
			want:   []CharRange{{'a', 'k'}},
		},
		{
			name:   "adjacent merges",
			ranges: []CharRange{{'a', 'c'}, {'d', 'f'}},
			want:   []CharRange{{'a', 'f'}},
		},
		{
			name:   "contained disappears",
			ranges: []CharRange{{'a', 'z'}, {'d', 'f'}},
			want:   []CharRange{{'a', 'z'}},
		},
		{
			name:   "chain collapse",
			ranges: []CharRange{{'d', 'e'}, {'a', 'd'}, {'c', 'c'}, {'f', 'k'}},
			want:   []CharRange{{'a', 'k'}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeRanges(tt.ranges)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ranges mismatch (-want +got):\n%s", diff)
			}
			// Normalised ranges are strictly increasing and never
			// adjacent.
			for i := 1; i < len(got); i++ {
				if got[i-1].Max+1 >= got[i].Min {
					t.Errorf("ranges %d and %d not separated: %+v", i-1, i, got)
				}
			}
		})
	}
}

func TestClassMatcher(t *testing.T) {
	t.Run("ranges with binary search", func(t *testing.T) {
		m := newClassMatcher(
			[]CharRange{{'0', '9'}, {'a', 'f'}, {'x', 'z'}},
			nil, nil, false, false)
		for _, r := range "059afxz" {
			if !m(r) {
				t.Errorf("rejected %q", r)
			}
		}
		for _, r := range "gAw/:" {
			if m(r) {
				t.Errorf("accepted %q", r)
			}
		}
	})

	t.Run("negation", func(t *testing.T) {
		m := newClassMatcher([]CharRange{{'a', 'z'}}, nil, nil, true, false)
		if m('q') || !m('Q') {
			t.Error("negation inverted incorrectly")
		}
	})

	t.Run("property predicates", func(t *testing.T) {
		m := newClassMatcher(nil, nil,
			[]propPredicate{{prop: PropDigit, positive: true}}, false, false)
		if !m('7') || m('x') {
			t.Error("digit predicate wrong")
		}

		m = newClassMatcher(nil, nil,
			[]propPredicate{{prop: PropDigit, positive: false}}, false, false)
		if m('7') || !m('x') {
			t.Error("complemented digit predicate wrong")
		}
	})

	t.Run("excluded set", func(t *testing.T) {
		// A complemented escape inside a class contributes its extra
		// characters as exclusions: everything else is accepted.
		m := newClassMatcher(nil, []rune{'_'}, nil, false, false)
		if m('_') || !m('-') {
			t.Error("excluded set wrong")
		}
	})

	t.Run("case folding", func(t *testing.T) {
		m := newClassMatcher([]CharRange{{'a', 'd'}}, nil, nil, false, true)
		if !m('B') || !m('b') || m('E') {
			t.Error("case-insensitive matcher wrong")
		}
	})
}

func TestCharProperty(t *testing.T) {
	tests := []struct {
		prop   CharProperty
		accept string
		reject string
	}{
		{PropDigit, "09٣", "a_ "},
		{PropAlnum, "a0É", "_ -"},
		{PropSpace, " \t ", "a0_"},
	}

	for _, tt := range tests {
		for _, r := range tt.accept {
			if !tt.prop.Matches(r) {
				t.Errorf("property %d rejected %q", tt.prop, r)
			}
		}
		for _, r := range tt.reject {
			if tt.prop.Matches(r) {
				t.Errorf("property %d accepted %q", tt.prop, r)
			}
		}
	}
}

func TestIsWordChar(t *testing.T) {
	for _, r := range "aZ0_é" {
		if !IsWordChar(r) {
			t.Errorf("IsWordChar(%q) = false", r)
		}
	}
	for _, r := range " .-\n" {
		if IsWordChar(r) {
			t.Errorf("IsWordChar(%q) = true", r)
		}
	}
}

// TestClassFoldBothEndpoints pins the case-insensitive range fold:
// both endpoints fold independently and the result is re-normalised.
func TestClassFoldBothEndpoints(t *testing.T) {
	parsed := mustParse(t, `(?i)[A-D]`)

	node := parsed.Nodes[2]
	if node.Op != OpMatcher {
		t.Fatalf("got %s, want Matcher", node.Op)
	}
	m := parsed.Matchers[node.Value]
	for _, r := range "abcdABCD" {
		if !m(r) {
			t.Errorf("rejected %q", r)
		}
	}
	for _, r := range "eE" {
		if m(r) {
			t.Errorf("accepted %q", r)
		}
	}
}
