package pipeline

import (
	"context"
	"fmt"
	"time"
)

// RunStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage. The report is finished and its outcome
// derived before OnBuildComplete fires, whatever the result.
func RunStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	err := runStages(ctx, bs, stages)
	bs.Report.Finish()
	bs.Report.DeriveOutcome()
	bs.Observer.OnBuildComplete(bs.Report)
	return err
}

func runStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(st.Name, ctx.Err())
			bs.Report.StageErrorKinds[st.Name] = se.Kind
			bs.Report.AddIssue(IssueCanceled, st.Name, SeverityError, se.Error(), false, se)
			bs.Report.RecordStageResult(st.Name, StageResultCanceled, bs.Recorder)
			bs.Observer.OnStageComplete(st.Name, 0, StageResultCanceled)
			return se
		default:
		}

		bs.Observer.OnStageStart(st.Name)

		warnings := len(bs.Report.Warnings)
		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		bs.Report.StageDurations[string(st.Name)] = dur

		out := ClassifyStageResult(st.Name, err, len(bs.Report.Warnings) > warnings)
		if out.Error != nil {
			bs.Report.StageErrorKinds[st.Name] = out.Error.Kind
			bs.Report.AddIssue(out.IssueCode, out.Stage, out.Severity, out.Error.Error(), out.Transient, out.Error)
		}

		bs.Report.RecordStageResult(st.Name, out.Result, bs.Recorder)
		bs.Observer.OnStageComplete(st.Name, dur, out.Result)

		if out.Abort {
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", st.Name)
		}
	}
	return nil
}
