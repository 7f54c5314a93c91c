package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/z4qs/repohealth_go_server/internal/model"
)

func testConfig() model.JobConfig {
	return model.JobConfig{
		RepoInput: "octo/hello",
		Mode:      model.ModeQuick,
	}
}

func testReport() *model.AnalysisReport {
	return &model.AnalysisReport{
		MarkdownContent: "# OK",
		JSONContent: model.ReportJSON{
			RepoURL: "https://github.com/octo/hello",
			Content: "# OK",
		},
		SourceMode: model.ModeQuick,
	}
}

func transitionCode(t *testing.T, err error) string {
	t.Helper()
	var terr *TransitionError
	require.True(t, errors.As(err, &terr), "expected TransitionError, got %v", err)
	return terr.Code
}

func TestCreateJob(t *testing.T) {
	reg := New()

	job := reg.CreateJob(testConfig())

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.StateIdle, job.State)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.StartedAt)
	assert.Equal(t, "octo/hello", job.Config.RepoInput)

	// Distinct jobs get distinct IDs
	other := reg.CreateJob(testConfig())
	assert.NotEqual(t, job.ID, other.ID)
}

func TestStartJob(t *testing.T) {
	reg := New()

	t.Run("idle to running", func(t *testing.T) {
		job := reg.CreateJob(testConfig())

		started, err := reg.StartJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StateRunning, started.State)
		assert.NotNil(t, started.StartedAt)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := reg.StartJob("no-such-job")
		assert.Equal(t, CodeJobNotFound, transitionCode(t, err))
	})

	t.Run("already running", func(t *testing.T) {
		job := reg.CreateJob(testConfig())
		_, err := reg.StartJob(job.ID)
		require.NoError(t, err)

		_, err = reg.StartJob(job.ID)
		assert.Equal(t, CodeInvalidTransition, transitionCode(t, err))

		// The failed attempt must not disturb the state
		current, ok := reg.Job(job.ID)
		require.True(t, ok)
		assert.Equal(t, model.StateRunning, current.State)
	})
}

func TestCompleteJob(t *testing.T) {
	reg := New()

	t.Run("happy path", func(t *testing.T) {
		job := reg.CreateJob(testConfig())
		_, err := reg.StartJob(job.ID)
		require.NoError(t, err)

		completed, err := reg.CompleteJob(job.ID, testReport())
		require.NoError(t, err)
		assert.Equal(t, model.StateCompleted, completed.State)
		assert.NotEmpty(t, completed.ReportRef)
		assert.NotNil(t, completed.FinishedAt)

		report, ok := reg.Report(job.ID)
		require.True(t, ok)
		assert.Equal(t, "# OK", report.MarkdownContent)
		assert.Equal(t, job.ID, report.JobID)
		assert.False(t, report.GeneratedAt.IsZero())
	})

	t.Run("from idle is invalid", func(t *testing.T) {
		job := reg.CreateJob(testConfig())

		_, err := reg.CompleteJob(job.ID, testReport())
		assert.Equal(t, CodeInvalidTransition, transitionCode(t, err))

		_, ok := reg.Report(job.ID)
		assert.False(t, ok, "no report may be stored on a rejected transition")
	})

	t.Run("second complete is terminal", func(t *testing.T) {
		job := reg.CreateJob(testConfig())
		_, err := reg.StartJob(job.ID)
		require.NoError(t, err)
		_, err = reg.CompleteJob(job.ID, testReport())
		require.NoError(t, err)

		_, err = reg.CompleteJob(job.ID, testReport())
		assert.Equal(t, CodeJobTerminal, transitionCode(t, err))
	})
}

func TestFailJob(t *testing.T) {
	reg := New()

	t.Run("from running", func(t *testing.T) {
		job := reg.CreateJob(testConfig())
		_, err := reg.StartJob(job.ID)
		require.NoError(t, err)

		failed, err := reg.FailJob(job.ID, "ANALYSIS_FAILED", "upstream exploded")
		require.NoError(t, err)
		assert.Equal(t, model.StateError, failed.State)
		assert.Equal(t, "ANALYSIS_FAILED", failed.ErrorCode)
		assert.Equal(t, "upstream exploded", failed.ErrorMessage)
		assert.NotNil(t, failed.FinishedAt)
	})

	t.Run("early failure from idle", func(t *testing.T) {
		job := reg.CreateJob(testConfig())

		failed, err := reg.FailJob(job.ID, "ANALYSIS_FAILED", "bad input")
		require.NoError(t, err)
		assert.Equal(t, model.StateError, failed.State)
	})

	t.Run("terminal job rejected", func(t *testing.T) {
		job := reg.CreateJob(testConfig())
		_, err := reg.CancelJob(job.ID)
		require.NoError(t, err)

		_, err = reg.FailJob(job.ID, "ANALYSIS_FAILED", "late")
		assert.Equal(t, CodeJobTerminal, transitionCode(t, err))
	})
}

func TestCancelJob(t *testing.T) {
	reg := New()

	t.Run("from idle", func(t *testing.T) {
		job := reg.CreateJob(testConfig())

		cancelled, err := reg.CancelJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StateCancelled, cancelled.State)
		assert.NotNil(t, cancelled.CancelRequestedAt)
		assert.NotNil(t, cancelled.FinishedAt)
	})

	t.Run("from running", func(t *testing.T) {
		job := reg.CreateJob(testConfig())
		_, err := reg.StartJob(job.ID)
		require.NoError(t, err)

		cancelled, err := reg.CancelJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StateCancelled, cancelled.State)
	})

	t.Run("double cancel", func(t *testing.T) {
		job := reg.CreateJob(testConfig())
		_, err := reg.CancelJob(job.ID)
		require.NoError(t, err)

		_, err = reg.CancelJob(job.ID)
		assert.Equal(t, CodeJobTerminal, transitionCode(t, err))

		current, ok := reg.Job(job.ID)
		require.True(t, ok)
		assert.Equal(t, model.StateCancelled, current.State)
	})
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	reg := New()

	terminalJobs := map[string]string{}

	completed := reg.CreateJob(testConfig())
	reg.StartJob(completed.ID)
	reg.CompleteJob(completed.ID, testReport())
	terminalJobs["completed"] = completed.ID

	errored := reg.CreateJob(testConfig())
	reg.StartJob(errored.ID)
	reg.FailJob(errored.ID, "ANALYSIS_FAILED", "x")
	terminalJobs["error"] = errored.ID

	cancelled := reg.CreateJob(testConfig())
	reg.CancelJob(cancelled.ID)
	terminalJobs["cancelled"] = cancelled.ID

	for name, id := range terminalJobs {
		t.Run(name, func(t *testing.T) {
			before, ok := reg.Job(id)
			require.True(t, ok)

			_, err := reg.StartJob(id)
			assert.Equal(t, CodeJobTerminal, transitionCode(t, err))
			_, err = reg.CompleteJob(id, testReport())
			assert.Equal(t, CodeJobTerminal, transitionCode(t, err))
			_, err = reg.FailJob(id, "ANALYSIS_FAILED", "x")
			assert.Equal(t, CodeJobTerminal, transitionCode(t, err))
			_, err = reg.CancelJob(id)
			assert.Equal(t, CodeJobTerminal, transitionCode(t, err))

			after, ok := reg.Job(id)
			require.True(t, ok)
			assert.Equal(t, before.State, after.State, "rejected transitions must not change state")
		})
	}
}

func TestAppendEvent(t *testing.T) {
	reg := New()

	t.Run("sequence is gapless and ordered", func(t *testing.T) {
		job := reg.CreateJob(testConfig())

		for i := 0; i < 5; i++ {
			event, err := reg.AppendEvent(job.ID, model.ProgressEvent{
				Type:    model.EventProgress,
				Message: "tick",
			})
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), event.Sequence)
			assert.NotEmpty(t, event.ID)
			assert.False(t, event.Timestamp.IsZero())
		}

		events := reg.Events(job.ID)
		require.Len(t, events, 5)
		for i, event := range events {
			assert.Equal(t, int64(i+1), event.Sequence)
			assert.Equal(t, job.ID, event.JobID)
		}
	})

	t.Run("sequences are per job", func(t *testing.T) {
		first := reg.CreateJob(testConfig())
		second := reg.CreateJob(testConfig())

		e1, err := reg.AppendEvent(first.ID, model.ProgressEvent{Type: model.EventProgress})
		require.NoError(t, err)
		e2, err := reg.AppendEvent(second.ID, model.ProgressEvent{Type: model.EventProgress})
		require.NoError(t, err)

		assert.Equal(t, int64(1), e1.Sequence)
		assert.Equal(t, int64(1), e2.Sequence)
	})

	t.Run("step auto-fills percent and message", func(t *testing.T) {
		job := reg.CreateJob(testConfig())

		event, err := reg.AppendEvent(job.ID, model.ProgressEvent{
			Type: model.EventStepUpdate,
			Step: model.StepAnalyzing,
		})
		require.NoError(t, err)
		assert.Equal(t, model.StepProgress[model.StepAnalyzing], event.Percent)
		assert.Equal(t, model.StepMessages[model.StepAnalyzing], event.Message)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := reg.AppendEvent("no-such-job", model.ProgressEvent{Type: model.EventProgress})
		assert.Equal(t, CodeJobNotFound, transitionCode(t, err))
	})
}

func TestSubscribe(t *testing.T) {
	reg := New()

	t.Run("notified on transitions and events", func(t *testing.T) {
		var gotEvents []*model.ProgressEvent
		var gotStates []model.JobState
		unsubscribe := reg.Subscribe(func(event *model.ProgressEvent, job *model.AnalysisJob) {
			gotEvents = append(gotEvents, event)
			gotStates = append(gotStates, job.State)
		})
		defer unsubscribe()

		job := reg.CreateJob(testConfig())
		_, err := reg.StartJob(job.ID)
		require.NoError(t, err)
		_, err = reg.AppendEvent(job.ID, model.ProgressEvent{Type: model.EventJobStarted})
		require.NoError(t, err)
		_, err = reg.CompleteJob(job.ID, testReport())
		require.NoError(t, err)

		require.Len(t, gotEvents, 3)
		assert.Nil(t, gotEvents[0], "transition notification carries no event")
		assert.NotNil(t, gotEvents[1])
		assert.Equal(t, model.EventJobStarted, gotEvents[1].Type)
		assert.Nil(t, gotEvents[2])
		assert.Equal(t, []model.JobState{model.StateRunning, model.StateRunning, model.StateCompleted}, gotStates)
	})

	t.Run("rejected transitions do not notify", func(t *testing.T) {
		calls := 0
		unsubscribe := reg.Subscribe(func(*model.ProgressEvent, *model.AnalysisJob) {
			calls++
		})
		defer unsubscribe()

		job := reg.CreateJob(testConfig())
		_, err := reg.CompleteJob(job.ID, testReport()) // invalid from idle
		require.Error(t, err)
		assert.Equal(t, 0, calls)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		calls := 0
		unsubscribe := reg.Subscribe(func(*model.ProgressEvent, *model.AnalysisJob) {
			calls++
		})

		job := reg.CreateJob(testConfig())
		_, err := reg.StartJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)

		unsubscribe()
		_, err = reg.CancelJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestJobSnapshotsAreCopies(t *testing.T) {
	reg := New()
	job := reg.CreateJob(testConfig())

	snapshot, ok := reg.Job(job.ID)
	require.True(t, ok)
	snapshot.State = model.StateCompleted // mutate the copy

	current, ok := reg.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, model.StateIdle, current.State)
}
