package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmbot/host/telemetry"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigCheck(t *testing.T) {
	good := writeFile(t, "good.json", `{"id": 2, "command": 3, "collision_policy": "sense"}`)
	bad := writeFile(t, "bad.json", `{"id": 2, "mode": "follow_chain"}`)

	out, _, err := execute(t, "config", "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (id 2, mode swarm, policy sense, command 3)")

	_, errOut, err := execute(t, "config", "check", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, errOut, "fixed_leader")
}

func TestConfigCheckNeedsFile(t *testing.T) {
	_, _, err := execute(t, "config", "check")
	assert.Error(t, err)
}

func TestUnknownLogLevel(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud", "config", "check", "x.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestMonitorReplay(t *testing.T) {
	log := writeFile(t, "session.log", strings.Join([]string{
		"[BOOT] id=1",
		"[FSM] clock=3100 from=IDLE to=RANDOM_WALK",
		"[FSM] clock=5000 from=RANDOM_WALK to=TRANSMITTING",
		"[COMM] sent=12",
	}, "\n"))

	src, err := openSource("", 0, log)
	require.NoError(t, err)
	defer src.Close()

	mon := telemetry.NewMonitor(telemetry.MonitorConfig{})
	require.NoError(t, runMonitor(context.Background(), mon, src))
	assert.Equal(t, "TRANSMITTING", mon.Metrics().State())
	assert.Len(t, mon.Transitions(), 2)
}

func TestMonitorMissingFile(t *testing.T) {
	_, _, err := execute(t, "monitor", "--file", filepath.Join(t.TempDir(), "nope.log"), "--metrics-addr", "")
	assert.Error(t, err)
}

func TestSimCommand(t *testing.T) {
	scenario := writeFile(t, "two.yaml", `
name: short
robots:
  - {id: 1, x: 20, y: 20}
  - {id: 2, x: 60, y: 60, heading: 90}
`)
	out, _, err := execute(t, "sim", "--scenario", scenario, "--ticks", "500", "--seed", "9")
	require.NoError(t, err)
	assert.Contains(t, out, `scenario "short"  ticks 500`)
	assert.Contains(t, out, "robot 1: IDLE")
	assert.Contains(t, out, "robot 2: IDLE")
}
