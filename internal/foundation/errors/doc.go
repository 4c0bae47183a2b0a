// Package errors provides the classified error type used across the assembler.
//
// A ClassifiedError carries a category and severity for routing, plus the
// code, documentation link and suggested action that are serialized into
// builds.json and printed by the CLI adapter.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryBuild, "function bundle too large").
//		WithCode("FUNCTION_TOO_LARGE").
//		WithLink("https://vercel.link/function-size").
//		HideStackTrace().
//		Build()
package errors
