// Package server is the development static file server. It serves the build
// output root and, in watch mode, rebuilds on source changes and tells open
// browser tabs to reload.
package server
