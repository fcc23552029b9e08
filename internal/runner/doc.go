// Package runner executes fixtures and rolls their outcomes into a
// result tree.
//
// Runner iterates fixtures, FixtureRunner iterates one fixture's templates
// in declared order, and TemplateRunner drives a template's enumerator and
// evaluates each instance it produces. Instance evaluation is:
//
//  1. stop if the template was cancelled
//  2. apply the template's rules; a blocked instance is not counted
//  3. ask the enumerator about exemptions, when the template declares any
//  4. resolve the check body's params against the instance environ,
//     extended with a fresh check.Recorder
//  5. run the body and count the outcome
//
// Errors are contained at the lowest level that can interpret them. A
// failing or panicking check body makes its instance an Error and leaves
// sibling instances alone. Anything else that goes wrong while evaluating
// an instance (an unresolved param, a failing filter, a panicking
// enumerator) is a harness error: it is captured once as the template
// error, the template's instance results are discarded, and the template's
// remaining instances are cancelled.
//
// Nothing panics or returns an error out of Runner.Run; every outcome is
// in the returned *result.RunResult.
package runner
