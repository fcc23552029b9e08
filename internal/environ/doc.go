// Package environ implements the typed value store threaded through a
// validation run.
//
// An Environ maps a Key, a (semantic tag, Go type) pair, to a value. The
// root environ is produced once per run by a Builder and holds the bulk
// bindings plus optional derivations. Every later Extend produces a new
// chain node holding exactly one binding and pointing at its predecessor:
//
//	root := environ.NewBuilder()
//	environ.Bind(root, "hello")
//	environ.BindTagged(root, "region", "eu-west-1")
//	env, err := root.Build()
//
//	inst := environ.Extend(env, 42)      // env is untouched
//	n := environ.Get[int](inst)          // 42
//	s := environ.Get[string](inst)       // "hello"
//
// # Lookup rules
//
// Matching is exact on both tag and type: a value bound under a concrete
// type is invisible under an interface it implements unless the interface
// is the bound key. Lookups walk the chain from the youngest node outward,
// so a later binding for the same key shadows earlier ones. Each lookup is
// O(chain depth) plus a map probe at the root; chains are a handful of
// nodes deep (one per enumeration step), which keeps this cheaper than
// copying maps on every extension.
//
// # Optional and required lookups
//
// Two lookup contracts coexist on purpose:
//
//   - Get / GetTagged return the zero value when nothing is bound.
//   - Require and ResolveAll fail with an UNRESOLVED_BINDING BindingError.
//
// Instance-building code relies on the former not failing; check
// parameter resolution relies on the latter being strict. Param.Optional
// lets a single ResolveAll request opt into the lenient form.
//
// # Derivations
//
// A Builder can register a DeriveFunc for a key instead of a value. It is
// called on every lookup that reaches the root without finding a direct
// binding, and it receives the environ the lookup started from, so it can
// read bindings added further down the chain.
package environ
