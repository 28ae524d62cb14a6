package runtime

import "testing"

func evaluate(t *testing.T, source string, vars map[string]interface{}) Value {
	t.Helper()
	value, err := NewEvaluator(NewContext(vars)).EvaluateString(source)
	if err != nil {
		t.Fatalf("evaluate %q: %v", source, err)
	}
	return value
}

func TestEvaluateExpressions(t *testing.T) {
	vars := map[string]interface{}{
		"n":     7,
		"price": 2.5,
		"name":  "ada",
		"blank": "",
		"list":  []interface{}{1, 2, 3},
		"user":  map[string]interface{}{"name": "Ada", "tags": []interface{}{"x", "y"}},
	}

	tests := []struct {
		source   string
		expected string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"7 / 2", "3.5"},
		{"8 / 2", "4"},
		{"7 % 3", "1"},
		{"2 ** 10", "1024"},
		{"-$n + 1", "-6"},
		{"$price * 2", "5"},
		{"'5' + 1", "6"},
		{"$name . '!'", "ada!"},
		{"$n > 5 && $n < 10", "1"},
		{"$n == '7'", "1"},
		{"$n === '7'", ""},
		{"$n != 7 || false", ""},
		{"!$n", ""},
		{"$n > 5 ? 'big' : 'small'", "big"},
		{"$blank ?: 'x'", "x"},
		{"$list[0] + $list[-1]", "4"},
		{"$user['name']", "Ada"},
		{"$user->tags[1]", "y"},
		{"$user['nope']", ""},
		{"[1, 2]", "[1,2]"},
		{"['a' => 1]", `{"a":1}`},
		{"upper($name)", "ADA"},
		{"ucfirst($name)", "Ada"},
		{"strlen('héllo')", "5"},
		{"count($list)", "3"},
		{"implode(', ', $list)", "1, 2, 3"},
		{"in_array(2, $list)", "1"},
		{"range(1, 3)", "[1,2,3]"},
		{"max(1, 9, 4)", "9"},
		{"round(2.456, 2)", "2.46"},
		{"isset($n, $name)", "1"},
		{"isset($user['nope'])", ""},
		{"empty($list)", ""},
		{"empty($nothing)", "1"},
		{"isset($nothing) && $nothing > 1", ""},
		{"empty($nothing) || $n", "1"},
		{"[true, false]", "[true,false]"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := evaluate(t, tt.source, vars).String(); got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestEvaluateAssignment(t *testing.T) {
	ctx := NewContext(nil)
	eval := NewEvaluator(ctx)

	value, err := eval.EvaluateString("$x = 2 + 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value.String() != "" {
		t.Fatalf("expected assignment to yield an empty string, got %q", value.String())
	}
	if got, _ := ctx.Get("x"); got.String() != "5" {
		t.Fatalf("expected $x to be 5, got %q", got.String())
	}

	value, err = eval.EvaluateString("$x == 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.Truthy() {
		t.Fatal("expected comparison, not assignment")
	}

	if err := eval.Assign("y", "$x * 2"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got, _ := ctx.Get("y"); got.String() != "10" {
		t.Fatalf("expected $y to be 10, got %q", got.String())
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		source string
		check  func(error) bool
	}{
		{"$undefined + 1", IsUndefinedVariableError},
		{"true || $undefined", IsUndefinedVariableError},
		{"false && $undefined", IsUndefinedVariableError},
		{"true ? 1 : $undefined", IsUndefinedVariableError},
		{"'x' ?: $undefined", IsUndefinedVariableError},
		{"isset($a) && $b", IsUndefinedVariableError},
		{"while (true)", IsInvalidExpressionError},
		{"function()", IsInvalidExpressionError},
		{"1 +", IsInvalidExpressionError},
		{"1 / 0", IsInvalidExpressionError},
		{"'abc' * 2", IsInvalidExpressionError},
		{"strlen()", IsInvalidExpressionError},
		{"", IsInvalidExpressionError},
	}

	for _, tt := range tests {
		_, err := NewEvaluator(NewContext(nil)).EvaluateString(tt.source)
		if !tt.check(err) {
			t.Fatalf("%q: unexpected error %v", tt.source, err)
		}
	}
}

func TestEvaluatorAt(t *testing.T) {
	eval := NewEvaluator(NewContext(map[string]interface{}{"a": 1})).At("page", 3)

	value, err := eval.EvaluateString("$a + 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value.String() != "2" {
		t.Fatalf("expected %q, got %q", "2", value.String())
	}

	_, err = eval.EvaluateString("$a > 0 || $nope")
	base := asError(err)
	if base == nil || base.Type != ErrorTypeUndefinedVariable || base.Template != "page" || base.Line != 3 {
		t.Fatalf("expected undefined variable located at page:3, got %v", err)
	}
}
