package repository

import (
	"reflect"
	"testing"
)

func TestCompileFieldOperators(t *testing.T) {
	cases := []struct {
		name     string
		column   string
		value    any
		wantExpr string
		wantArgs []any
	}{
		{"bare literal is equality", "status", "NEW", "status = ?", []any{"NEW"}},
		{"eq", "status", Eq("NEW"), "status = ?", []any{"NEW"}},
		{"neq", "status", Neq("CLOSED"), "status <> ?", []any{"CLOSED"}},
		{"gt", "duration", Gt(30), "duration > ?", []any{30}},
		{"gte", "fee", Gte(100), "fee >= ?", []any{100}},
		{"lt", "duration", Lt(60), "duration < ?", []any{60}},
		{"lte", "fee", Lte(500), "fee <= ?", []any{500}},
		{"contains", "name", Contains("acme"), "name ILIKE ?", []any{"%acme%"}},
		{"startsWith", "name", StartsWith("ac"), "name ILIKE ?", []any{"ac%"}},
		{"endsWith", "email", EndsWith(".test"), "email ILIKE ?", []any{"%.test"}},
		{"in", "status", In([]string{"NEW", "RESOLVED"}), "status IN ?", []any{[]string{"NEW", "RESOLVED"}}},
		{"notIn", "status", NotIn([]string{"CLOSED"}), "status NOT IN ?", []any{[]string{"CLOSED"}}},
		{"qualified column", `priority`, Eq("HIGH"), "priority = ?", []any{"HIGH"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cl, err := compileField(tc.column, tc.value)
			if err != nil {
				t.Fatalf("compileField failed: %v", err)
			}
			if cl.expr != tc.wantExpr {
				t.Errorf("expr = %q, want %q", cl.expr, tc.wantExpr)
			}
			if !reflect.DeepEqual(cl.args, tc.wantArgs) {
				t.Errorf("args = %v, want %v", cl.args, tc.wantArgs)
			}
		})
	}
}

func TestCompileFieldRejectsBadInput(t *testing.T) {
	if _, err := compileField("name; DROP TABLE users", "x"); err == nil {
		t.Error("non-identifier column must be rejected")
	}
	if _, err := compileField("UPPER", "x"); err == nil {
		t.Error("upper-case column must be rejected")
	}
	if _, err := compileField("name", Condition{Op: "regex", Value: ".*"}); err == nil {
		t.Error("unknown operator must be rejected")
	}
}

func TestCompileCriteriaDeterministicOrder(t *testing.T) {
	c := Criteria{"b_col": 1, "a_col": 2, "c_col": 3}

	first, err := compileCriteria(c, nil)
	if err != nil {
		t.Fatalf("compileCriteria failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := compileCriteria(c, nil)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("compilation order must not depend on map iteration")
		}
	}
	if first[0].expr != "a_col = ?" || first[1].expr != "b_col = ?" || first[2].expr != "c_col = ?" {
		t.Errorf("clauses not sorted: %+v", first)
	}
}

func TestCompileSearch(t *testing.T) {
	clauses, err := compileCriteria(Criteria{KeySearch: "acme"}, []string{"name", "email"})
	if err != nil {
		t.Fatalf("compileCriteria failed: %v", err)
	}
	if len(clauses) != 1 {
		t.Fatalf("clauses = %d, want 1", len(clauses))
	}
	want := "(name ILIKE ? OR email ILIKE ?)"
	if clauses[0].expr != want {
		t.Errorf("expr = %q, want %q", clauses[0].expr, want)
	}
	if !reflect.DeepEqual(clauses[0].args, []any{"%acme%", "%acme%"}) {
		t.Errorf("args = %v", clauses[0].args)
	}
}

func TestCompileSearchIgnoredWithoutFields(t *testing.T) {
	clauses, err := compileCriteria(Criteria{KeySearch: "acme"}, nil)
	if err != nil {
		t.Fatalf("compileCriteria failed: %v", err)
	}
	if len(clauses) != 0 {
		t.Errorf("search without fields must compile to nothing, got %+v", clauses)
	}

	clauses, err = compileCriteria(Criteria{KeySearch: ""}, []string{"name"})
	if err != nil || len(clauses) != 0 {
		t.Errorf("empty term must compile to nothing, got (%+v, %v)", clauses, err)
	}
}

func TestCompileOrCombinator(t *testing.T) {
	c := Criteria{
		KeyOr: []Criteria{
			{"status": "NEW"},
			{"priority": "HIGH", "status": "IN_PROGRESS"},
		},
	}

	clauses, err := compileCriteria(c, nil)
	if err != nil {
		t.Fatalf("compileCriteria failed: %v", err)
	}
	if len(clauses) != 1 {
		t.Fatalf("clauses = %d, want 1", len(clauses))
	}
	want := "((status = ?) OR (priority = ? AND status = ?))"
	if clauses[0].expr != want {
		t.Errorf("expr = %q, want %q", clauses[0].expr, want)
	}
	if !reflect.DeepEqual(clauses[0].args, []any{"NEW", "HIGH", "IN_PROGRESS"}) {
		t.Errorf("args = %v", clauses[0].args)
	}
}

func TestCompileAndCombinatorRangeQuery(t *testing.T) {
	// Same column twice needs the AND combinator, one map key can't repeat
	c := Criteria{
		KeyAnd: []Criteria{
			{"appointment_date": Gte("2026-01-01")},
			{"appointment_date": Lte("2026-12-31")},
		},
	}

	clauses, err := compileCriteria(c, nil)
	if err != nil {
		t.Fatalf("compileCriteria failed: %v", err)
	}
	want := "((appointment_date >= ?) AND (appointment_date <= ?))"
	if clauses[0].expr != want {
		t.Errorf("expr = %q, want %q", clauses[0].expr, want)
	}
}

func TestCompileCombinatorRejectsWrongShape(t *testing.T) {
	if _, err := compileCriteria(Criteria{KeyOr: "not-a-slice"}, nil); err == nil {
		t.Error("OR with a non-slice value must be rejected")
	}
	if _, err := compileCriteria(Criteria{KeySearch: 42}, []string{"name"}); err == nil {
		t.Error("non-string search term must be rejected")
	}
}

func TestCompileEmptyCriteria(t *testing.T) {
	clauses, err := compileCriteria(nil, nil)
	if err != nil || clauses != nil {
		t.Errorf("empty criteria = (%v, %v), want (nil, nil)", clauses, err)
	}
}
