// Package preflight provides readiness checks for the binaries, directories
// and remote API a subburn run depends on.
//
// The CLI "subburn status" command runs RunAll and renders each Result as a
// status line. Checks never fail hard; they report what is wrong and let the
// caller decide.
package preflight
