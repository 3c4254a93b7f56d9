package ast

// Params holds the strategy-specific parameters of a rule.
// The set of implementations is closed; see the package documentation.
type Params interface {
	strategy() StrategyType
}

// ColumnParams is implemented by parameters that read a source column.
type ColumnParams interface {
	Params
	Column() string
}

// Transform normalizes an extracted value.
type Transform string

const (
	TransformNone  Transform = "none"
	TransformTrim  Transform = "trim"
	TransformUpper Transform = "upper"
	TransformLower Transform = "lower"
	TransformTitle Transform = "title"
)

// ValidTransforms lists the accepted transform names.
var ValidTransforms = map[Transform]bool{
	TransformNone:  true,
	TransformTrim:  true,
	TransformUpper: true,
	TransformLower: true,
	TransformTitle: true,
}

// TokenMode selects how a lookup key is derived from column text.
type TokenMode string

const (
	// TokenWhole uses the whole trimmed cell text.
	TokenWhole TokenMode = "whole"
	// TokenFirstWord uses the first word.
	TokenFirstWord TokenMode = "first_word"
	// TokenLastWord uses the last word.
	TokenLastWord TokenMode = "last_word"
	// TokenWords scans word sequences left to right, longest key first.
	TokenWords TokenMode = "words"
)

// ValidTokenModes lists the accepted token modes.
var ValidTokenModes = map[TokenMode]bool{
	TokenWhole:     true,
	TokenFirstWord: true,
	TokenLastWord:  true,
	TokenWords:     true,
}

// LiteralMatchParams matches when the column text equals Literal, ignoring case
// and surrounding whitespace. Value defaults to Literal.
type LiteralMatchParams struct {
	Source  string
	Literal string
	Value   string
}

// ContainsParams matches when the column text contains one of Tokens, ignoring
// case. With WholeWord set, a token must be delimited by non-alphanumerics.
// The result is Value when set, otherwise the token as configured.
type ContainsParams struct {
	Source    string
	Tokens    []string
	WholeWord bool
	Value     string
}

// PatternExtractParams applies a regular expression to the column text and
// yields Group (a named group, or the first named group, or group 1, or the
// whole match when the pattern has no groups).
type PatternExtractParams struct {
	Source     string
	Pattern    string
	Group      string
	Transform  Transform
	IgnoreCase bool
}

// LookupTableParams derives a token from the column according to Token and
// yields the mapped value of the first table key that matches, ignoring case.
type LookupTableParams struct {
	Source    string
	Token     TokenMode
	Table     map[string]string
	Transform Transform
}

// DerivedParams builds a value from fields already present in the result.
// Format may reference fields as {Target}; when empty, the values of From are
// joined with Separator.
type DerivedParams struct {
	From      []string
	Format    string
	Separator string
}

// DefaultParams always yields Value.
type DefaultParams struct {
	Value string
}

func (*LiteralMatchParams) strategy() StrategyType   { return StrategyLiteralMatch }
func (*ContainsParams) strategy() StrategyType       { return StrategyContains }
func (*PatternExtractParams) strategy() StrategyType { return StrategyPatternExtract }
func (*LookupTableParams) strategy() StrategyType    { return StrategyLookupTable }
func (*DerivedParams) strategy() StrategyType        { return StrategyDerived }
func (*DefaultParams) strategy() StrategyType        { return StrategyDefault }

// Column returns the referenced source column.
func (p *LiteralMatchParams) Column() string { return p.Source }

// Column returns the referenced source column.
func (p *ContainsParams) Column() string { return p.Source }

// Column returns the referenced source column.
func (p *PatternExtractParams) Column() string { return p.Source }

// Column returns the referenced source column.
func (p *LookupTableParams) Column() string { return p.Source }

// StrategyOf returns the strategy implied by a parameter variant.
func StrategyOf(p Params) StrategyType {
	if p == nil {
		return ""
	}
	return p.strategy()
}
