package policyopa

import "github.com/open-policy-agent/opa/ast"

// allowedBuiltins covers what issuance rules need: comparisons, set and
// collection sizes, and case folding of hex addresses.
var allowedBuiltins = map[string]struct{}{
	"assign": {},
	"count":  {},
	"eq":     {},
	"equal":  {},
	"gt":     {},
	"gte":    {},
	"lower":  {},
	"lt":     {},
	"lte":    {},
	"neq":    {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
