// Package errors provides classified error primitives used across clickit.
//
// A ClassifiedError carries a category, a severity and a retry strategy in
// addition to its message and cause. Build stages, the development server
// and the contact relay all produce classified errors so the CLI and HTTP
// adapters can map them to exit codes and status codes.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, "write bundle failed").
//		WithContext("path", outPath).
//		Build()
package errors
