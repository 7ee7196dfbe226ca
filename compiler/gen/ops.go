package gen

import (
	"strings"

	"github.com/dave/jennifer/jen"
)

// operators maps binary operators to Expr methods.
var operators = map[string]string{
	"=":  "Eq",
	"<>": "Neq",
	"!=": "Neq",
	">":  "Gt",
	">=": "Gte",
	"<":  "Lt",
	"<=": "Lte",
	"+":  "Add",
	"-":  "Sub",
	"*":  "Mul",
	"/":  "Div",
	"%":  "Mod",
	"@@": "TsMatch",
}

// passthrough operators have no dedicated method and are emitted through
// Expr.Op.
var passthrough = map[string]bool{
	// Regular expressions.
	"~": true, "~*": true, "!~": true, "!~*": true,
	// Containment and overlap.
	"@>": true, "<@": true, "&&": true,
	// JSONB.
	"?": true, "?|": true, "?&": true, "#-": true, "@?": true,
	// Bits and math.
	"^": true, "<<": true, ">>": true, "&": true, "|": true, "#": true,
	// Distances and ranges.
	"<->": true, "<#>": true, "<=>": true, "<+>": true, "-|-": true, "&<": true, "&>": true,
}

// binary emits lhs op rhs.
func (t *transpiler) binary(op string, lhs, rhs value) (value, error) {
	switch op {
	case "||":
		return value{concat: append(lhs.operands(), rhs.operands()...)}, nil
	case "->", "->>":
		if key, ok := rhs.lit.(string); ok && rhs.isLit {
			method := "JSONGet"
			if op == "->>" {
				method = "JSONGetText"
			}
			return method1(lhs, method, jen.Lit(key)), nil
		}
		return method1(lhs, "Op", jen.Lit(op), rhs.arg()), nil
	case "#>", "#>>":
		if path, ok := rhs.lit.(string); ok && rhs.isLit {
			method := "JSONPath"
			if op == "#>>" {
				method = "JSONPathText"
			}
			var keys []jen.Code
			for _, k := range strings.Split(strings.Trim(path, "{}"), ",") {
				keys = append(keys, jen.Lit(strings.TrimSpace(k)))
			}
			return method1(lhs, method, keys...), nil
		}
		return method1(lhs, "Op", jen.Lit(op), rhs.arg()), nil
	}
	if m, ok := operators[op]; ok {
		return method1(lhs, m, rhs.arg()), nil
	}
	if passthrough[op] {
		return method1(lhs, "Op", jen.Lit(op), rhs.arg()), nil
	}
	return value{}, unsupported("operator", op, "add it to the operator table")
}

// method1 calls method on the receiver form of v.
func method1(v value, method string, args ...jen.Code) value {
	return value{code: jen.Add(v.expr()).Dot(method).Call(args...)}
}
