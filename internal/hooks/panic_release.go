// ABOUTME: Release builds recover panicking built-ins and report them as hook failures
// ABOUTME: Build with -tags chatshell_debug to let them crash instead

//go:build !chatshell_debug

package hooks

const repanicBuiltins = false
