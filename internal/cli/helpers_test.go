package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/coachbook/internal/testutil"
)

// practice runs commands against one SQLite file with a frozen clock and
// ids shared across invocations, the way repeated shell calls would.
type practice struct {
	t     *testing.T
	dsn   string
	clock *testutil.DeterministicClock
	ids   *testutil.SequentialIDs
}

func newPractice(t *testing.T) *practice {
	t.Helper()
	return &practice{
		t:     t,
		dsn:   filepath.Join(t.TempDir(), "practice.db"),
		clock: testutil.NewDeterministicClock(testutil.Date(2025, 3, 15)),
		ids:   testutil.NewSequentialIDs("id"),
	}
}

// exec runs one command and returns stdout, stderr and the error.
func (p *practice) exec(args ...string) (string, string, error) {
	p.t.Helper()

	opts := &RootOptions{Clock: p.clock, IDs: p.ids}
	cmd := newRootCommand(opts)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--driver", "sqlite", "--dsn", p.dsn))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// run is exec that fails the test on error.
func (p *practice) run(args ...string) string {
	p.t.Helper()
	out, errOut, err := p.exec(args...)
	require.NoError(p.t, err, "coachbook %v\nstderr: %s", args, errOut)
	return out
}

// runJSON runs the command with --format json and decodes the data field.
func (p *practice) runJSON(v any, args ...string) {
	p.t.Helper()
	out := p.run(append(args, "--format", "json")...)

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(p.t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(p.t, "ok", resp.Status)
	require.NoError(p.t, json.Unmarshal(resp.Data, v))
}

// seedBilling creates rate id-1, coachee id-2 and a completed session id-3.
func (p *practice) seedBilling() {
	p.t.Helper()
	p.run("settings", "set", "--company", "North Star Coaching")
	p.run("rate", "add", "--name", "Standard Coaching", "--price", "120")
	p.run("coachee", "add", "--first", "Clara", "--last", "Meyer", "--email", "clara@example.com")
	p.run("session", "add", "--coachee", "id-2", "--date", "2025-03-10", "--topic", "Career goals", "--status", "completed")
}
