// ABOUTME: Debug builds re-panic from failing built-ins so the stack reaches the developer
// ABOUTME: Selected with -tags chatshell_debug

//go:build chatshell_debug

package hooks

const repanicBuiltins = true
