package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNameParseRoundTrip(t *testing.T) {
	for _, c := range All() {
		got, err := Parse(Name(c))
		require.NoError(t, err, "code %d", c)
		assert.Equal(t, c, got)
	}
}

func TestCodesAreUniqueAndOrdered(t *testing.T) {
	codes := All()
	require.Len(t, codes, 12)
	seen := make(map[Code]bool)
	for i, c := range codes {
		assert.False(t, seen[c], "duplicate code %d", c)
		seen[c] = true
		if i > 0 {
			assert.Greater(t, c, codes[i-1])
		}
	}
	assert.Equal(t, Success, codes[0])
	assert.Equal(t, InternalError, codes[len(codes)-1])
}

func TestContractValues(t *testing.T) {
	assert.Equal(t, 0, int(Success))
	assert.Equal(t, 1, int(LexicalError))
	assert.Equal(t, 2, int(SyntacticError))
	assert.Equal(t, 3, int(SemanticUndefined))
	assert.Equal(t, 4, int(SemanticFunctionArgs))
	assert.Equal(t, 5, int(SemanticRedefined))
	assert.Equal(t, 6, int(SemanticMissingExpr))
	assert.Equal(t, 7, int(SemanticTypeCompatibility))
	assert.Equal(t, 8, int(SemanticTypeDerivation))
	assert.Equal(t, 9, int(SemanticUnusedVariable))
	assert.Equal(t, 10, int(SemanticOther))
	assert.Equal(t, 99, int(InternalError))
}

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown(Success))
	assert.True(t, IsKnown(InternalError))
	assert.False(t, IsKnown(Code(11)))
	assert.False(t, IsKnown(Code(42)))
	assert.False(t, IsKnown(Code(-1)))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Code
		wantErr string
	}{
		{in: "LEXICAL_ERROR", want: LexicalError},
		{in: "syntactic_error", want: SyntacticError},
		{in: " 7 ", want: SemanticTypeCompatibility},
		{in: "42", want: Code(42)},
		{in: "", wantErr: "empty exit code"},
		{in: "BOGUS", wantErr: "unknown exit code name"},
		{in: "256", wantErr: "out of range"},
		{in: "-1", wantErr: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "2 SYNTACTIC_ERROR", SyntacticError.String())
	assert.Equal(t, "42 UNKNOWN", Code(42).String())
	assert.Equal(t, "unknown exit status", Description(Code(42)))
}

func TestYAMLNameOrInteger(t *testing.T) {
	var doc struct {
		A Code `yaml:"a"`
		B Code `yaml:"b"`
		C Code `yaml:"c"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: SEMANTIC_ERROR_OTHER\nb: 3\nc: 200\n"), &doc))
	assert.Equal(t, SemanticOther, doc.A)
	assert.Equal(t, SemanticUndefined, doc.B)
	assert.Equal(t, Code(200), doc.C)

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, "a: SEMANTIC_ERROR_OTHER\nb: SEMANTIC_ERROR_UNDEFINED\nc: 200\n", string(out))
}

func TestYAMLRejectsBadValue(t *testing.T) {
	var doc struct {
		A Code `yaml:"a"`
	}
	err := yaml.Unmarshal([]byte("a: [1, 2]\n"), &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a scalar")

	err = yaml.Unmarshal([]byte("a: NOPE\n"), &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown exit code name")
}
