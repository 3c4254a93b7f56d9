package validator

import (
	"mercator-hq/pricelist/pkg/rules/ast"
	rulesErrors "mercator-hq/pricelist/pkg/rules/errors"
)

// Validator runs all validation passes in sequence.
type Validator struct {
	structural *StructuralValidator
	semantic   *SemanticValidator
}

// NewValidator creates a validator with all passes.
func NewValidator() *Validator {
	return &Validator{
		structural: NewStructuralValidator(),
		semantic:   NewSemanticValidator(),
	}
}

// Validate runs all passes on cfg and returns a *errors.ConfigError, or nil.
func (v *Validator) Validate(cfg *ast.RuleConfig) error {
	all := rulesErrors.NewConfigError()
	if cfg == nil {
		all.AddError(rulesErrors.ErrorTypeStructural, "Rule configuration is nil", ast.Location{})
		return all
	}

	all.Merge(v.structural.Validate(cfg), rulesErrors.ErrorTypeStructural)

	if !all.HasErrorType(rulesErrors.ErrorTypeStructural) {
		all.Merge(v.semantic.Validate(cfg), rulesErrors.ErrorTypeSemantic)
	}

	return all.ToError()
}

// ValidateStructural runs only the structural pass.
func (v *Validator) ValidateStructural(cfg *ast.RuleConfig) error {
	return v.structural.Validate(cfg)
}

// ValidateSemantic runs only the semantic pass.
func (v *Validator) ValidateSemantic(cfg *ast.RuleConfig) error {
	return v.semantic.Validate(cfg)
}
