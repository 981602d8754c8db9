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
		{name: "nil slice", input: nil, want: nil},
		{name: "empty slice", input: []string{}, want: []string{}},
		{
			name:  "trims padding",
			input: []string{"  REC-1  ", "REC-2  ", "  REC-3"},
			want:  []string{"REC-1", "REC-2", "REC-3"},
		},
		{
			name:  "first occurrence wins",
			input: []string{"REC-1", "REC-2", "REC-1", "REC-3", "REC-2"},
			want:  []string{"REC-1", "REC-2", "REC-3"},
		},
		{
			name:  "drops empty and blank elements",
			input: []string{"REC-1", "", "  ", "REC-2"},
			want:  []string{"REC-1", "REC-2"},
		},
		{
			name:  "padding does not defeat dedupe",
			input: []string{"  REC-1 ", "REC-2", "REC-1", "", "REC-2"},
			want:  []string{"REC-1", "REC-2"},
		},
		{
			name:  "case is significant",
			input: []string{"Rec", "rec", "REC"},
			want:  []string{"Rec", "rec", "REC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil slice", input: nil, want: nil},
		{
			name:  "case folds before dedupe",
			input: []string{"Foo", "foo", "FOO"},
			want:  []string{"foo"},
		},
		{
			name:  "trims and folds together",
			input: []string{"  FOO ", "bar", "Foo", "BAR"},
			want:  []string{"foo", "bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrimLower(tt.input))
		})
	}
}
