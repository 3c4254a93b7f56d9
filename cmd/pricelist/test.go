package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/pricelist/pkg/cli"
	"mercator-hq/pricelist/pkg/extraction/engine"
	"mercator-hq/pricelist/pkg/row"
	"mercator-hq/pricelist/pkg/telemetry/logging"
)

var testFlags struct {
	rulesPath string
	testsFile string
	format    string
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run rule unit tests",
	Long: `Execute rule unit tests against an extraction engine.

Each test case is a row and the fields the rules must produce for it.

Test Case Format (YAML):
  tests:
    - name: "D&G men's eau de toilette"
      row:
        E: "D&G Light Blue pour homme EDT (100ml)"
        C: "8057971180356"
      expect:
        fields:
          Product.Brand: "D&G"
          Product.Gender: "Men"
          Product.Size: "100ml"
        absent: [Product.Bundle]   # fields that must not be extracted
        rules:                     # winning rule id per field
          Product.Brand: brand-table

Examples:
  # Run unit tests
  pricelist test --rules rules/perfume.yaml --tests tests/perfume_tests.yaml

  # JSON output for CI/CD
  pricelist test --rules rules/ --tests tests/perfume_tests.yaml --format json`,
	RunE: runTests,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVarP(&testFlags.rulesPath, "rules", "r", "", "rule document or directory (default: configured rules source)")
	testCmd.Flags().StringVarP(&testFlags.testsFile, "tests", "t", "", "test case file")
	testCmd.Flags().StringVar(&testFlags.format, "format", "text", "output format: text, json")

	// Mark required flags - panic if this fails as it's a programming error
	if err := testCmd.MarkFlagRequired("tests"); err != nil {
		panic(fmt.Sprintf("failed to mark tests flag as required: %v", err))
	}
}

// TestSuite represents a collection of test cases.
type TestSuite struct {
	Tests []TestCase `yaml:"tests"`
}

// TestCase represents a single rule test case.
type TestCase struct {
	Name   string            `yaml:"name"`
	Row    map[string]string `yaml:"row"`
	Expect TestExpectation   `yaml:"expect"`
}

// TestExpectation represents the expected result of a test case.
type TestExpectation struct {
	// Fields must be extracted with exactly these values.
	Fields map[string]string `yaml:"fields"`

	// Absent fields must not be extracted.
	Absent []string `yaml:"absent"`

	// Rules maps a field to the id of the rule that must win it.
	Rules map[string]string `yaml:"rules"`
}

// TestResult represents the result of executing a single test case.
type TestResult struct {
	TestName string        `json:"name"`
	Passed   bool          `json:"passed"`
	Failures []string      `json:"failures,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// TestReport is the JSON output of a test run.
type TestReport struct {
	Rules   string       `json:"rules"`
	Total   int          `json:"total"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Results []TestResult `json:"results"`
}

func runTests(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(testFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	// Load test cases
	testSuite, err := loadTestCases(testFlags.testsFile)
	if err != nil {
		return cli.NewCommandError("test", fmt.Errorf("failed to load test cases: %w", err))
	}

	if len(testSuite.Tests) == 0 {
		return fmt.Errorf("no test cases found in %s", testFlags.testsFile)
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	// Suppress engine logs during testing
	logger := logging.Nop()

	loaded, err := resolveRules(commandContext(cmd), cfg, testFlags.rulesPath, logger)
	if err != nil {
		return cli.NewCommandError("test", fmt.Errorf("failed to load rules: %w", err))
	}

	eng, err := engine.New(loaded.Config, engineConfig(cfg), logger.Slog())
	if err != nil {
		return cli.NewCommandError("test", fmt.Errorf("failed to build engine: %w", err))
	}

	report := TestReport{
		Rules:   loaded.Config.Name,
		Total:   len(testSuite.Tests),
		Results: make([]TestResult, 0, len(testSuite.Tests)),
	}
	for _, testCase := range testSuite.Tests {
		result := runTestCase(eng, testCase)
		report.Results = append(report.Results, result)
		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	out := commandOutput(cmd)
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(out, report); err != nil {
			return err
		}
	} else {
		outputTestText(out, report)
	}

	if report.Failed > 0 {
		return cli.NewCommandError("test", fmt.Errorf("test failures"))
	}
	return nil
}

func loadTestCases(path string) (*TestSuite, error) {
	// #nosec G304 - User-specified test file path is expected behavior for a CLI tool.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &suite, nil
}

func runTestCase(eng *engine.Engine, testCase TestCase) TestResult {
	start := time.Now()

	result := TestResult{TestName: testCase.Name}
	bag, trace := eng.Parse(row.New(testCase.Row))

	for _, field := range sortedKeys(testCase.Expect.Fields) {
		want := testCase.Expect.Fields[field]
		got, ok := bag.Get(field)
		switch {
		case !ok:
			result.Failures = append(result.Failures, fmt.Sprintf("%s: expected %q, not extracted", field, want))
		case got != want:
			result.Failures = append(result.Failures, fmt.Sprintf("%s: expected %q, got %q", field, want, got))
		}
	}

	for _, field := range testCase.Expect.Absent {
		if got, ok := bag.Get(field); ok {
			result.Failures = append(result.Failures, fmt.Sprintf("%s: expected absent, got %q", field, got))
		}
	}

	for _, field := range sortedKeys(testCase.Expect.Rules) {
		want := testCase.Expect.Rules[field]
		winner, ok := trace.Winner(field)
		switch {
		case !ok:
			result.Failures = append(result.Failures, fmt.Sprintf("%s: expected rule %q to win, no rule matched", field, want))
		case winner.RuleID != want:
			result.Failures = append(result.Failures, fmt.Sprintf("%s: expected rule %q to win, got %q", field, want, winner.RuleID))
		}
	}

	result.Passed = len(result.Failures) == 0
	result.Duration = time.Since(start)
	return result
}

func outputTestText(out io.Writer, report TestReport) {
	fmt.Fprintln(out, "Running rule tests...")
	fmt.Fprintln(out)

	for _, result := range report.Results {
		if result.Passed {
			fmt.Fprintf(out, "✓ %s (%.1fms)\n", result.TestName, result.Duration.Seconds()*1000)
			continue
		}
		fmt.Fprintf(out, "✗ %s\n", result.TestName)
		for _, f := range result.Failures {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d tests run, %d passed, %d failed\n", report.Total, report.Passed, report.Failed)

	if report.Failed > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Failed tests:")
		for _, result := range report.Results {
			if !result.Passed {
				fmt.Fprintf(out, "  - %s\n", result.TestName)
			}
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
