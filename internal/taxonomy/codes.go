// Package taxonomy defines the exit codes of the IFJ24 compiler and the
// diagnostic category each one stands for.
//
// The set is closed: codes are fixed at compile time and never reassigned.
// 0 always means success and 99 is reserved for internal compiler errors.
// Any other integer a process may return is "unknown" but still comparable.
package taxonomy

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Code is a compiler termination status.
type Code int

// Compiler exit codes.
const (
	Success                   Code = 0  // compilation succeeded
	LexicalError              Code = 1  // malformed lexeme
	SyntacticError            Code = 2  // program structure error
	SemanticUndefined         Code = 3  // undefined function or variable
	SemanticFunctionArgs      Code = 4  // wrong parameter count/type or return value
	SemanticRedefined         Code = 5  // redefinition or assignment to a constant
	SemanticMissingExpr       Code = 6  // missing or superfluous return expression
	SemanticTypeCompatibility Code = 7  // incompatible types in an expression
	SemanticTypeDerivation    Code = 8  // type cannot be derived from the expression
	SemanticUnusedVariable    Code = 9  // unused or unmodified variable
	SemanticOther             Code = 10 // any other semantic error
	InternalError             Code = 99 // failure not caused by the input program
)

type entry struct {
	code        Code
	name        string
	description string
}

// table is ordered by code and must stay that way; All relies on it.
var table = []entry{
	{Success, "SUCCESS", "success"},
	{LexicalError, "LEXICAL_ERROR", "lexical error"},
	{SyntacticError, "SYNTACTIC_ERROR", "syntactic error"},
	{SemanticUndefined, "SEMANTIC_ERROR_UNDEFINED", "undefined function or variable"},
	{SemanticFunctionArgs, "SEMANTIC_ERROR_TYPECOUNT_FUNCTION", "wrong count or type of function arguments or return value"},
	{SemanticRedefined, "SEMANTIC_ERROR_REDEFINED", "redefinition of a variable or function, or assignment to a constant"},
	{SemanticMissingExpr, "SEMANTIC_ERROR_MISSING_EXPR", "missing or superfluous expression in a return statement"},
	{SemanticTypeCompatibility, "SEMANTIC_ERROR_TYPE_COMPATIBILITY", "type incompatibility in an expression or assignment"},
	{SemanticTypeDerivation, "SEMANTIC_ERROR_TYPE_DERIVATION", "variable type cannot be derived"},
	{SemanticUnusedVariable, "SEMANTIC_ERROR_UNUSED_VARIABLE", "unused variable"},
	{SemanticOther, "SEMANTIC_ERROR_OTHER", "other semantic error"},
	{InternalError, "INTERNAL_ERROR", "internal compiler error"},
}

var (
	byCode = make(map[Code]entry, len(table))
	byName = make(map[string]entry, len(table))
)

func init() {
	for _, e := range table {
		byCode[e.code] = e
		byName[e.name] = e
	}
}

// IsKnown reports whether c is one of the defined compiler exit codes.
func IsKnown(c Code) bool {
	_, ok := byCode[c]
	return ok
}

// Name returns the symbolic name of c, or "UNKNOWN" for undefined codes.
func Name(c Code) string {
	if e, ok := byCode[c]; ok {
		return e.name
	}
	return "UNKNOWN"
}

// Description returns a short human-readable meaning of c.
func Description(c Code) string {
	if e, ok := byCode[c]; ok {
		return e.description
	}
	return "unknown exit status"
}

// All returns every defined code in ascending order.
func All() []Code {
	codes := make([]Code, len(table))
	for i, e := range table {
		codes[i] = e.code
	}
	return codes
}

// Parse converts a symbolic name or a decimal integer into a Code.
// Names are matched case-insensitively. Integers outside the defined set
// are accepted; exit statuses must fit in 0..255.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty exit code")
	}
	if e, ok := byName[strings.ToUpper(s)]; ok {
		return e.code, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unknown exit code name %q", s)
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("exit code %d out of range 0..255", n)
	}
	return Code(n), nil
}

// String renders the code as "<int> <NAME>", e.g. "2 SYNTACTIC_ERROR".
func (c Code) String() string {
	return fmt.Sprintf("%d %s", int(c), Name(c))
}

// UnmarshalYAML accepts either a symbolic name or an integer.
func (c *Code) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: exit code must be a scalar", node.Line)
	}
	parsed, err := Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

// MarshalYAML writes known codes by name and unknown codes as integers.
func (c Code) MarshalYAML() (interface{}, error) {
	if IsKnown(c) {
		return Name(c), nil
	}
	return int(c), nil
}
