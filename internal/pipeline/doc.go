// Package pipeline runs a site build as an ordered list of named stages.
//
// Each stage receives the shared BuildState, appends warnings to the
// BuildReport and returns a *StageError (or a plain error, treated as fatal)
// when it cannot continue. RunStages stops at the first fatal or canceled
// stage; warnings never stop the build.
package pipeline
