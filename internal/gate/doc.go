// Package gate decides whether a release tag may advance through the
// stage sequence alpha, beta, rc, stable.
//
// One Evaluate call produces one Verdict. The engine combines the parsed
// candidate tag, the stage policy, the sibling tags already present for
// the same version triple, the tag's ancestry relative to the trunk
// reference, and the version declared by the build manifest at the tagged
// commit. Every rule that fails appends a violation; the engine never
// stops at the first problem, so an operator sees the complete picture in
// a single run.
//
// # Decision Algorithm
//
// Evaluate runs these steps in order:
//
//  1. Parse the candidate tag. A malformed tag is a usage error returned
//     immediately; no repository state is consulted and no Verdict is
//     produced.
//  2. Refresh local history (best effort, failure is a warning).
//  3. Resolve the tag to a commit. Failure is a violation and the
//     ancestry and manifest checks are skipped, not assumed passing.
//  4. Check the commit is reachable from the trunk reference. A negative
//     answer is a violation; a query that could not execute is a warning.
//  5. Collect sibling tags whose version triple equals the candidate's,
//     excluding the candidate itself. Tags that do not parse are not
//     siblings.
//  6. If the policy names a required previous stage and no sibling
//     carries it, record a violation.
//  7. If any sibling outranks the candidate's stage, record a stage
//     regression violation. Regression is forbidden in every mode.
//  8. Read the manifest at the resolved commit and compare its declared
//     version against the tag's triple. A missing manifest is tolerated
//     silently; a mismatch or an unusable version field is a violation.
//  9. ready_to_publish is true only in publish mode with zero
//     violations. Dry-run is never ready.
// 10. Assemble the immutable Verdict, accumulating violations and
//     warnings in discovery order so repeated runs over identical inputs
//     produce identical output.
//
// # Failure Semantics
//
// Only an unparsable tag aborts evaluation. Infrastructure failures in
// provenance queries degrade to warnings with the affected check skipped.
// Every rule violation accumulates into the Verdict and the decision
// always completes.
package gate
