package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  foo ", "\tbar\n"}, []string{"foo", "bar"}},
		{"drops duplicates keeping order", []string{"b", "a", "b", "a"}, []string{"b", "a"}},
		{"drops empties", []string{"", "  ", "x"}, []string{"x"}},
		{"duplicate after trim", []string{" foo", "foo "}, []string{"foo"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DedupeAndTrim(tc.input))
		})
	}
}
