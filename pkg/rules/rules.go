package rules

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/pricelist/pkg/rules/ast"
	rulesErrors "mercator-hq/pricelist/pkg/rules/errors"
	"mercator-hq/pricelist/pkg/rules/loader"
	"mercator-hq/pricelist/pkg/rules/validator"
)

// LoadAndValidate loads and validates a rule document. Only its result may
// be used to build an engine.
func LoadAndValidate(path string) (*ast.RuleConfig, error) {
	return LoadAndValidateWith(loader.New(), path)
}

// LoadAndValidateBytes loads and validates a rule document from memory.
func LoadAndValidateBytes(data []byte, sourcePath string) (*ast.RuleConfig, error) {
	cfg, err := loader.New().LoadBytes(data, sourcePath)
	if err != nil {
		return nil, err
	}
	if err := validateWithContext(cfg, data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateWith loads one or more documents with the given loader and
// validates the composed configuration.
func LoadAndValidateWith(l *loader.Loader, paths ...string) (*ast.RuleConfig, error) {
	var (
		cfg *ast.RuleConfig
		err error
	)
	if len(paths) == 1 {
		cfg, err = l.Load(paths[0])
	} else {
		cfg, err = l.LoadMulti(paths)
	}
	if err != nil {
		return nil, err
	}
	if err := validateWithContext(cfg, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads a rule document without validation.
func Load(path string) (*ast.RuleConfig, error) {
	return loader.New().Load(path)
}

// Validate validates a loaded configuration.
func Validate(cfg *ast.RuleConfig) error {
	return validator.NewValidator().Validate(cfg)
}

// FindDocuments returns the YAML documents under dir in lexical order.
func FindDocuments(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// validateWithContext validates cfg and attaches document context to errors.
// With data nil, context is read from the files named in error locations.
func validateWithContext(cfg *ast.RuleConfig, data []byte) error {
	err := validator.NewValidator().Validate(cfg)
	ce := rulesErrors.AsConfigError(err)
	if ce == nil {
		return err
	}
	for _, e := range ce.Errors {
		if e.Context != "" {
			continue
		}
		if data != nil {
			e.Context = rulesErrors.ExtractContextBytes(data, e.Location, 2)
		} else {
			e.Context = rulesErrors.ExtractContext(e.Location, 2)
		}
	}
	return ce
}
