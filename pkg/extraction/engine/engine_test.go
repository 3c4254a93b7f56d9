package engine

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/pricelist/pkg/row"
	"mercator-hq/pricelist/pkg/rules"
	"mercator-hq/pricelist/pkg/rules/ast"
	rulesErrors "mercator-hq/pricelist/pkg/rules/errors"
)

func loadExample(t testing.TB) *Engine {
	t.Helper()
	cfg, err := rules.LoadAndValidate("testdata/perfume.yaml")
	if err != nil {
		t.Fatalf("LoadAndValidate() failed: %v", err)
	}
	eng, err := BuildEngine(cfg)
	if err != nil {
		t.Fatalf("BuildEngine() failed: %v", err)
	}
	return eng
}

func buildFromYAML(t *testing.T, doc string, config *EngineConfig) *Engine {
	t.Helper()
	cfg, err := rules.LoadAndValidateBytes([]byte(doc), "inline.yaml")
	if err != nil {
		t.Fatalf("LoadAndValidateBytes() failed: %v", err)
	}
	eng, err := New(cfg, config, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return eng
}

func TestEngine_Scenarios(t *testing.T) {
	eng := loadExample(t)

	tests := []struct {
		name   string
		row    map[string]string
		want   map[string]string
		absent []string
	}{
		{
			name: "tester with size",
			row:  map[string]string{"E": "D&G Pour Homme EDT TST (125ml)"},
			want: map[string]string{
				"Product.Brand":         "D&G",
				"Product.Line":          "Pour Homme",
				"Product.Name":          "D&G Pour Homme",
				"Product.Gender":        "Men",
				"Product.Concentration": "EDT",
				"Product.Tester":        "true",
				"Product.Size":          "125ml",
			},
			absent: []string{"Product.Bundle", "Offer.Price", "Product.Barcode"},
		},
		{
			name: "bundle kept verbatim",
			row:  map[string]string{"E": "MOSCHINO Toy2Pearl EDP (100+SG100+BL100+10)"},
			want: map[string]string{
				"Product.Brand":         "MOSCHINO",
				"Product.Line":          "Toy2Pearl",
				"Product.Name":          "MOSCHINO Toy2Pearl",
				"Product.Concentration": "EDP",
				"Product.Tester":        "false",
				"Product.Bundle":        "100+SG100+BL100+10",
			},
			absent: []string{"Product.Size", "Product.Gender"},
		},
		{
			name: "full supplier row",
			row: map[string]string{
				"A": "REGULAR",
				"B": "P1DV1L00",
				"C": "8057971188284",
				"D": "REG",
				"E": "VERSACE Yellow Diamond Intense Wom EDP (90ml)",
				"F": "1304",
				"G": "33.00",
			},
			want: map[string]string{
				"Product.Brand":         "VERSACE",
				"Product.Line":          "Yellow Diamond Intense Wom",
				"Product.Name":          "VERSACE Yellow Diamond Intense Wom",
				"Product.Gender":        "Women",
				"Product.Concentration": "EDP",
				"Product.Tester":        "false",
				"Product.Size":          "90ml",
				"Product.Barcode":       "8057971188284",
				"Offer.SupplierArticle": "P1DV1L00",
				"Offer.Stock":           "1304",
				"Offer.Price":           "33.00",
			},
			absent: []string{"Product.Bundle"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag, trace := eng.Parse(row.New(tt.row))

			for field, want := range tt.want {
				if got, ok := bag.Get(field); !ok || got != want {
					t.Errorf("%s = (%q, %v), want %q\n%s", field, got, ok, want, trace)
				}
			}
			for _, field := range tt.absent {
				if bag.Has(field) {
					t.Errorf("%s = %q, want absent", field, bag[field])
				}
			}
		})
	}
}

func TestEngine_UnusedColumnsProduceNothing(t *testing.T) {
	eng := loadExample(t)
	bag, _ := eng.Parse(row.New(map[string]string{"A": "REGULAR", "D": "REG"}))

	for field, value := range bag {
		if value == "REGULAR" || value == "REG" {
			t.Errorf("%s = %q was produced from column A or D", field, value)
		}
	}
	if got := bag.Keys(); len(got) != 1 || got[0] != "Product.Tester" {
		t.Errorf("Keys() = %v, want only the tester default", got)
	}
}

func TestEngine_DefaultOnly(t *testing.T) {
	eng := buildFromYAML(t, `
version: "1.0"
name: default-only
fields:
  - target: Product.Brand
    rules:
      - {id: unknown, strategy: Default, value: Unknown}
`, nil)

	rows := []map[string]string{
		nil,
		{"E": "VERSACE Eros EDT (100ml)"},
		{"Brand": "Chanel"},
		{"E": ""},
	}
	for _, r := range rows {
		bag, _ := eng.Parse(row.New(r))
		if got := bag["Product.Brand"]; got != "Unknown" {
			t.Errorf("row %v: Product.Brand = %q, want Unknown", r, got)
		}
	}
}

func TestEngine_Determinism(t *testing.T) {
	eng := loadExample(t)
	r := row.New(map[string]string{
		"B": "P1DV1L00",
		"C": "8057971188284",
		"E": "VERSACE Yellow Diamond Intense Wom EDP (90ml)",
		"G": "33.00",
	})

	bag1, trace1 := eng.Parse(r)
	bag2, trace2 := eng.Parse(r)

	if !reflect.DeepEqual(bag1, bag2) {
		t.Errorf("bags differ:\n%v\n%v", bag1, bag2)
	}
	if !reflect.DeepEqual(trace1.Entries(), trace2.Entries()) {
		t.Errorf("traces differ:\n%s\n%s", trace1, trace2)
	}
}

func TestEngine_FirstMatchWins(t *testing.T) {
	eng := buildFromYAML(t, `
version: "1.0"
name: first-match
fields:
  - target: Product.Concentration
    rules:
      - {id: fallback, strategy: default, priority: 100, value: Unknown}
      - {id: exact, strategy: literal_match, priority: 10, source: E, literal: "EDT", value: "Eau de Toilette"}
      - {id: token, strategy: contains, priority: 20, source: E, tokens: [EDT, EDP]}
      - {id: late, strategy: contains, priority: 30, source: E, tokens: [EDT], value: never}
`, nil)

	bag, trace := eng.Parse(row.New(map[string]string{"E": "Eros EDT 100ml"}))

	if got := bag["Product.Concentration"]; got != "EDT" {
		t.Errorf("Product.Concentration = %q, want EDT", got)
	}

	entries := trace.ForField("Product.Concentration")
	if len(entries) != 2 {
		t.Fatalf("trace has %d entries, want 2 (later rules must not run):\n%s", len(entries), trace)
	}
	if entries[0].RuleID != "exact" || entries[0].Outcome != OutcomeSkipped {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].RuleID != "token" || entries[1].Outcome != OutcomeMatched {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if w, ok := trace.Winner("Product.Concentration"); !ok || w.RuleID != "token" {
		t.Errorf("Winner() = %+v, %v", w, ok)
	}
}

func TestEngine_PriorityTiesUseDeclarationOrder(t *testing.T) {
	eng := buildFromYAML(t, `
version: "1.0"
name: ties
fields:
  - target: Product.Brand
    rules:
      - {id: second-declared-lower, strategy: default, priority: 5, value: C}
      - {id: first, strategy: default, priority: 10, value: A}
      - {id: second, strategy: default, priority: 10, value: B}
`, nil)

	bag, _ := eng.Parse(row.New(nil))
	if got := bag["Product.Brand"]; got != "C" {
		t.Errorf("Product.Brand = %q, want C (lowest priority first)", got)
	}

	eng = buildFromYAML(t, `
version: "1.0"
name: ties
fields:
  - target: Product.Brand
    rules:
      - {id: first, strategy: default, priority: 10, value: A}
      - {id: second, strategy: default, priority: 10, value: B}
`, nil)
	bag, _ = eng.Parse(row.New(nil))
	if got := bag["Product.Brand"]; got != "A" {
		t.Errorf("Product.Brand = %q, want A (declaration order)", got)
	}
}

func TestEngine_AbsenceIsNotAnError(t *testing.T) {
	eng := buildFromYAML(t, `
version: "1.0"
name: absence
fields:
  - target: Product.Size
    rules:
      - {id: ml, strategy: pattern_extract, source: E, pattern: '(\d+)\s*ml'}
  - target: Offer.Price
    rules:
      - {id: price, strategy: pattern_extract, source: G, pattern: '^\d+(?:\.\d+)?$'}
`, nil)

	bag, trace := eng.Parse(row.New(map[string]string{"E": "no size here", "G": "33.00"}))

	if bag.Has("Product.Size") {
		t.Errorf("Product.Size = %q, want absent", bag["Product.Size"])
	}
	if v, ok := bag["Product.Size"]; ok || v != "" {
		t.Error("absent field must not be stored as an empty string")
	}
	if bag["Offer.Price"] != "33.00" {
		t.Errorf("Offer.Price = %q", bag["Offer.Price"])
	}
	if len(trace.Errors()) != 0 {
		t.Errorf("unexpected error entries: %v", trace.Errors())
	}
}

func TestEngine_ForwardDerivedReference(t *testing.T) {
	eng := buildFromYAML(t, `
version: "1.0"
name: forward
fields:
  - target: Product.Name
    rules:
      - {id: name, strategy: derived, from: [Product.Brand, Product.Line], format: "{Product.Brand} / {Product.Line}"}
  - target: Product.Line
    rules:
      - {id: line, strategy: derived, from: [Product.Brand], format: "{Product.Brand} Classic"}
  - target: Product.Brand
    rules:
      - {id: brand, strategy: pattern_extract, source: E, pattern: '^(\S+)', transform: upper}
`, nil)

	if got := eng.Fields(); !reflect.DeepEqual(got, []string{"Product.Brand", "Product.Line", "Product.Name"}) {
		t.Errorf("Fields() = %v", got)
	}

	bag, _ := eng.Parse(row.New(map[string]string{"E": "gucci bloom"}))
	if got := bag["Product.Name"]; got != "GUCCI / GUCCI Classic" {
		t.Errorf("Product.Name = %q", got)
	}

	bag, trace := eng.Parse(row.New(map[string]string{"E": "   "}))
	if bag.Has("Product.Name") {
		t.Errorf("Product.Name = %q, want absent", bag["Product.Name"])
	}
	if e := trace.ForField("Product.Name"); len(e) != 1 || !strings.Contains(e[0].Detail, "missing Product.Brand") {
		t.Errorf("Product.Name trace = %+v", e)
	}
}

func TestEngine_DeclarationOrderWithoutDerived(t *testing.T) {
	eng := loadExample(t)
	want := []string{
		"Product.Brand", "Product.Line", "Product.Name", "Product.Gender",
		"Product.Concentration", "Product.Tester", "Product.Size", "Product.Bundle",
		"Product.Barcode", "Offer.SupplierArticle", "Offer.Stock", "Offer.Price",
	}
	if got := eng.Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}
}

func TestEngine_CellTooLongIsolated(t *testing.T) {
	eng := buildFromYAML(t, `
version: "1.0"
name: limits
fields:
  - target: Product.Brand
    rules:
      - {id: first-word, strategy: pattern_extract, source: E, pattern: '^(\S+)'}
      - {id: fallback, strategy: default, priority: 1, value: Unknown}
  - target: Offer.Price
    rules:
      - {id: price, strategy: pattern_extract, source: G, pattern: '^\d+$'}
`, DefaultEngineConfig().WithMaxCellLength(8))

	bag, trace := eng.Parse(row.New(map[string]string{"E": "VERSACE Eros EDT", "G": "33"}))

	if bag["Product.Brand"] != "Unknown" {
		t.Errorf("Product.Brand = %q, want fallback", bag["Product.Brand"])
	}
	if bag["Offer.Price"] != "33" {
		t.Errorf("other fields must still be evaluated: Offer.Price = %q", bag["Offer.Price"])
	}

	errs := trace.Errors()
	if len(errs) != 1 {
		t.Fatalf("Errors() = %v, want one", errs)
	}
	var ruleErr *RuleEvaluationError
	if !errors.As(errs[0].Err, &ruleErr) {
		t.Fatalf("entry error = %T, want *RuleEvaluationError", errs[0].Err)
	}
	if ruleErr.RuleID != "first-word" || !errors.Is(ruleErr, ErrCellTooLong) {
		t.Errorf("error = %v", ruleErr)
	}
}

type panicEvaluator struct{}

func (panicEvaluator) evaluate(*evalState) (result, error) {
	panic("pattern engine failure")
}

func TestEngine_PanicIsolated(t *testing.T) {
	eng := buildFromYAML(t, `
version: "1.0"
name: panics
fields:
  - target: Product.Brand
    rules:
      - {id: broken, strategy: pattern_extract, priority: 1, source: E, pattern: '^(\S+)'}
      - {id: working, strategy: pattern_extract, priority: 2, source: E, pattern: '^(\S+)', transform: upper}
  - target: Product.Tester
    rules:
      - {id: no, strategy: default, value: "false"}
`, nil)

	// Replace the compiled evaluator of the first rule.
	eng.fields[0].rules[0].eval = panicEvaluator{}

	bag, trace := eng.Parse(row.New(map[string]string{"E": "dior sauvage"}))

	if bag["Product.Brand"] != "DIOR" {
		t.Errorf("Product.Brand = %q, want the next rule's value", bag["Product.Brand"])
	}
	if bag["Product.Tester"] != "false" {
		t.Errorf("Product.Tester = %q, row evaluation must continue", bag["Product.Tester"])
	}

	entries := trace.ForField("Product.Brand")
	if len(entries) != 2 || entries[0].Outcome != OutcomeError {
		t.Fatalf("trace = %+v", entries)
	}
	if !errors.Is(entries[0].Err, ErrRulePanic) || !strings.Contains(entries[0].Detail, "pattern engine failure") {
		t.Errorf("error entry = %+v", entries[0])
	}
}

func TestNew_Errors(t *testing.T) {
	valid, err := rules.LoadAndValidateBytes([]byte(`
version: "1.0"
name: valid
fields:
  - target: A
    rules:
      - {id: a, strategy: default, value: x}
      - {id: b, strategy: default, value: y}
  - target: B
    rules:
      - {id: b, strategy: default, value: z}
`), "")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("nil configuration", func(t *testing.T) {
		if _, err := New(nil, nil, nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("invalid engine config", func(t *testing.T) {
		if _, err := New(valid, &EngineConfig{}, nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("too many fields", func(t *testing.T) {
		if _, err := New(valid, DefaultEngineConfig().WithMaxFields(1), nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("too many rules", func(t *testing.T) {
		_, err := New(valid, DefaultEngineConfig().WithMaxRulesPerField(1), nil)
		var buildErr *BuildError
		if !errors.As(err, &buildErr) || buildErr.Field != "A" {
			t.Errorf("error = %v, want BuildError for field A", err)
		}
	})

	t.Run("field with zero rules", func(t *testing.T) {
		cfg := &ast.RuleConfig{Version: "1.0", Name: "bad", Fields: []*ast.FieldSpec{{Target: "A"}}}
		if _, err := BuildEngine(cfg); !rulesErrors.IsConfigError(err) {
			t.Errorf("error = %v, want ConfigError", err)
		}
	})

	t.Run("cyclic derived reference", func(t *testing.T) {
		cfg := &ast.RuleConfig{Version: "1.0", Name: "bad", Fields: []*ast.FieldSpec{
			{Target: "A", Rules: []*ast.RuleSpec{{ID: "a", Strategy: ast.StrategyDerived, Params: &ast.DerivedParams{From: []string{"B"}}}}},
			{Target: "B", Rules: []*ast.RuleSpec{{ID: "b", Strategy: ast.StrategyDerived, Params: &ast.DerivedParams{From: []string{"A"}}}}},
		}}
		if _, err := BuildEngine(cfg); !rulesErrors.IsConfigError(err) {
			t.Errorf("error = %v, want ConfigError", err)
		}
	})

	t.Run("well formed", func(t *testing.T) {
		eng, err := BuildEngine(valid)
		if err != nil {
			t.Fatalf("BuildEngine() failed: %v", err)
		}
		if eng.RuleCount() != 3 || eng.Config() != valid {
			t.Errorf("RuleCount() = %d", eng.RuleCount())
		}
	})
}

func TestEngine_ConcurrentParse(t *testing.T) {
	eng := loadExample(t)
	rows := []map[string]string{
		{"E": "D&G Pour Homme EDT TST (125ml)"},
		{"E": "MOSCHINO Toy2Pearl EDP (100+SG100+BL100+10)"},
		{"C": "8057971188284", "E": "VERSACE Yellow Diamond Intense Wom EDP (90ml)", "G": "33.00"},
	}

	want := make([]ResultBag, len(rows))
	for i, r := range rows {
		want[i] = eng.Extract(row.New(r))
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				i := (g + n) % len(rows)
				if got := eng.Extract(row.New(rows[i])); !reflect.DeepEqual(got, want[i]) {
					t.Errorf("goroutine %d: row %d = %v, want %v", g, i, got, want[i])
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestEvaluationTrace_Helpers(t *testing.T) {
	eng := loadExample(t)
	r := row.New(map[string]string{"E": "D&G Pour Homme EDT TST (125ml)"})
	_, trace := eng.Parse(r)

	tester := trace.ForField("Product.Tester")
	if len(tester) != 2 {
		t.Fatalf("Product.Tester entries = %+v", tester)
	}
	if tester[0].Outcome != OutcomeSkipped || tester[0].Detail != "column Type not present" {
		t.Errorf("tester[0] = %+v", tester[0])
	}

	if _, ok := trace.Winner("Product.Bundle"); ok {
		t.Error("Winner() of an unmatched field should report false")
	}

	data, err := json.Marshal(trace)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	var decoded EvaluationTrace
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if decoded.Len() != trace.Len() {
		t.Errorf("decoded %d entries, want %d", decoded.Len(), trace.Len())
	}
	if !strings.Contains(string(data), `"rule_id":"brand-table"`) {
		t.Errorf("JSON missing rule id: %s", data)
	}

	explain := eng.Explain(r)
	for _, want := range []string{"Product.Brand\n", `[matched] brand-table (lookup_table) = "D&G"`, "[skipped] tester-type-column"} {
		if !strings.Contains(explain, want) {
			t.Errorf("Explain() missing %q:\n%s", want, explain)
		}
	}

	// Entries returns a copy.
	entries := trace.Entries()
	entries[0].Value = "changed"
	if trace.Entries()[0].Value == "changed" {
		t.Error("Entries() exposed internal state")
	}
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[Outcome]int
	rows     int
}

func (r *countingRecorder) RecordRule(_, _ string, _ ast.StrategyType, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

func (r *countingRecorder) RecordRow(time.Duration, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows++
}

func TestEngine_Recorder(t *testing.T) {
	cfg, err := rules.LoadAndValidate("testdata/perfume.yaml")
	if err != nil {
		t.Fatal(err)
	}
	rec := &countingRecorder{outcomes: make(map[Outcome]int)}
	eng, err := New(cfg, nil, nil, WithRecorder(rec))
	if err != nil {
		t.Fatal(err)
	}

	_, trace := eng.Parse(row.New(map[string]string{"E": "D&G Pour Homme EDT TST (125ml)"}))

	if rec.rows != 1 {
		t.Errorf("rows = %d, want 1", rec.rows)
	}
	total := rec.outcomes[OutcomeMatched] + rec.outcomes[OutcomeSkipped] + rec.outcomes[OutcomeError]
	if total != trace.Len() {
		t.Errorf("recorded %d rule outcomes, trace has %d", total, trace.Len())
	}
}

func BenchmarkEngine_Parse(b *testing.B) {
	eng := loadExample(b)
	r := row.New(map[string]string{
		"A": "REGULAR",
		"B": "P1DV1L00",
		"C": "8057971188284",
		"D": "REG",
		"E": "VERSACE Yellow Diamond Intense Wom EDP (90ml)",
		"F": "1304",
		"G": "33.00",
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = eng.Parse(r)
	}
}

func BenchmarkEngine_ParseParallel(b *testing.B) {
	eng := loadExample(b)
	r := row.New(map[string]string{"E": "D&G Pour Homme EDT TST (125ml)"})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = eng.Parse(r)
		}
	})
}
