package dirent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize83_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"short name, no extension", "hello", "HELLO      "},
		{"name and extension", "hello.txt", "HELLO   TXT"},
		{"name truncated to 8", "verylongname.c", "VERYLONGC  "},
		{"extension truncated to 3", "a.longext", "A       LON"},
		{"already uppercase", "README.MD", "README  MD "},
		{"disallowed characters become bang", "my file.txt", "MY!FILE TXT"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out := Canonicalize83(test.input)
			require.Equal(t, test.expected, string(out[:]))
		})
	}
}

func TestCanonicalize83_Idempotent(t *testing.T) {
	// Re-decoding a canonical 11-byte name as "NAME.EXT" and canonicalizing
	// it again must yield the identical bytes.
	first := Canonicalize83("hello.txt")
	decoded := decodeName(first[:])
	second := Canonicalize83(decoded)
	require.Equal(t, first, second)
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{"/", nil},
		{"", nil},
		{".", nil},
		{"/HELLO.TXT", []string{"HELLO.TXT"}},
		{"a/b/c", []string{"a", "b", "c"}},
		{"\\a\\b", []string{"a", "b"}},
		{"/a//b/./c", []string{"a", "b", "c"}},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, SplitPath(test.path), "path %q", test.path)
	}
}

func TestDecodeName(t *testing.T) {
	raw := Canonicalize83("hello.txt")
	require.Equal(t, "HELLO.TXT", decodeName(raw[:]))

	raw = Canonicalize83("noext")
	require.Equal(t, "NOEXT", decodeName(raw[:]))
}
