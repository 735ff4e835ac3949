package pipeline

import (
	stderrors "errors"

	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
)

// StageOutcome normalized result of stage execution.
type StageOutcome struct {
	Stage     StageName
	Error     *StageError
	Result    StageResult
	IssueCode ReportIssueCode
	Severity  IssueSeverity
	Transient bool
	Abort     bool
}

// ClassifyStageResult converts a raw stage error into a StageOutcome. A nil
// error is a warning result when the stage recorded warnings, success otherwise.
func ClassifyStageResult(stage StageName, err error, warned bool) StageOutcome {
	if err == nil {
		if warned {
			return StageOutcome{Stage: stage, Result: StageResultWarning}
		}
		return StageOutcome{Stage: stage, Result: StageResultSuccess}
	}

	var se *StageError
	if !stderrors.As(err, &se) {
		se = NewFatalStageError(stage, err)
	}

	switch se.Kind {
	case StageErrorCanceled:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultCanceled, IssueCode: IssueCanceled, Severity: SeverityError, Abort: true}
	case StageErrorWarning:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultWarning, IssueCode: issueCode(se), Severity: SeverityWarning, Transient: se.Transient()}
	default:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultFatal, IssueCode: issueCode(se), Severity: SeverityError, Transient: se.Transient(), Abort: true}
	}
}

func issueCode(se *StageError) ReportIssueCode {
	switch errors.GetCategory(se.Err) {
	case errors.CategoryFileSystem:
		return IssueFileSystem
	case errors.CategoryNotFound:
		switch se.Stage {
		case StageBundleStyles, StageBundleScripts:
			return IssueMissingFragment
		case StageCopyStatic:
			return IssueMissingCopySource
		case StageRewritePages:
			return IssueMissingPage
		}
	}
	return IssueGenericStageError
}
