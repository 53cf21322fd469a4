package trajectory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhuxie0719/codeagent/agent"
	"github.com/zhuxie0719/codeagent/environment"
	"github.com/zhuxie0719/codeagent/model"
)

var scriptedRun = []string{
	"Step one\n```bash\necho 'first'\n```",
	"Finish\n```bash\necho '" + agent.FinishSentinel + "'\necho 'all done'\n```",
}

func runScripted(t *testing.T, outputs []string, task string) (*agent.Agent, agent.RunOutcome) {
	t.Helper()
	model.GlobalStats().Reset()
	env := environment.NewLocalEnvironment(environment.LocalConfig{})
	t.Cleanup(func() { env.Close() })

	a, err := agent.New(model.NewDeterministicModel(outputs), env, agent.DefaultConfig())
	require.NoError(t, err)
	return a, a.Run(context.Background(), task)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a, outcome := runScripted(t, scriptedRun, "Round trip task")
	require.Equal(t, agent.StatusSubmitted, outcome.Status)

	traj := New(a, outcome)
	assert.Equal(t, FormatVersion, traj.Format)
	assert.NotEmpty(t, traj.Info.RunID)
	assert.Equal(t, "Round trip task", traj.Info.Task)
	assert.Equal(t, "submitted", traj.Info.ExitStatus)
	assert.Equal(t, "all done\n", traj.Info.Submission)
	assert.Equal(t, 2, traj.Info.ModelStats.NCalls)
	assert.Equal(t, 2.0, traj.Info.ModelStats.Cost)

	path := filepath.Join(t.TempDir(), "runs", "run.traj.json")
	require.NoError(t, traj.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, traj.Format, loaded.Format)
	assert.Equal(t, traj.Info.RunID, loaded.Info.RunID)
	assert.Equal(t, traj.Info.Submission, loaded.Info.Submission)
	assert.Equal(t, traj.Messages, loaded.Messages)
}

func TestAssistantOutputsExtraction(t *testing.T) {
	a, outcome := runScripted(t, scriptedRun, "Extraction task")
	traj := New(a, outcome)

	assert.Equal(t, scriptedRun, traj.AssistantOutputs())
}

func TestReplayReproducesHistory(t *testing.T) {
	original, outcome := runScripted(t, scriptedRun, "Replay task")
	require.Equal(t, agent.StatusSubmitted, outcome.Status)

	path := filepath.Join(t.TempDir(), "replay.traj.json")
	require.NoError(t, New(original, outcome).Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	replayed, replayOutcome := runScripted(t, loaded.AssistantOutputs(), "Replay task")
	assert.Equal(t, outcome, replayOutcome)
	assert.Equal(t, original.Messages(), replayed.Messages())
}
