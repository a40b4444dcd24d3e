package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPact = `{
	"consumer": {"name": "order-ui"},
	"provider": {"name": "order-api"},
	"interactions": [
		{
			"description": "a request to create an order",
			"request": {
				"method": "POST",
				"path": "/orders",
				"headers": {"Content-Type": "application/json"},
				"body": {"id": 100, "state": "new"}
			},
			"response": {"status": 201}
		}
	]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(args ...string) (string, error) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestPlanCommand(t *testing.T) {
	dir := t.TempDir()
	pactPath := writeFile(t, dir, "pact.json", testPact)

	out, err := runCLI("plan", "--config", "", "--pact", pactPath, "--description", "", "--interaction", "0")
	require.NoError(t, err)
	assert.Contains(t, out, ":request (")
	assert.Contains(t, out, "%match:equality (\n        'POST',")
	assert.Contains(t, out, "%json:parse (")
	assert.NotContains(t, out, " => ")
}

func TestPlanCommandSelection(t *testing.T) {
	dir := t.TempDir()
	pactPath := writeFile(t, dir, "pact.json", testPact)

	_, err := runCLI("plan", "--config", "", "--pact", pactPath, "--description", "a request to create an order")
	assert.NoError(t, err)

	_, err = runCLI("plan", "--config", "", "--pact", pactPath, "--description", "no such interaction")
	assert.ErrorContains(t, err, `no HTTP interaction with description "no such interaction"`)

	_, err = runCLI("plan", "--config", "", "--pact", pactPath, "--description", "", "--interaction", "5")
	assert.ErrorContains(t, err, "interaction index 5 out of range")
}

func TestExecuteCommandMatch(t *testing.T) {
	dir := t.TempDir()
	pactPath := writeFile(t, dir, "pact.json", testPact)
	requestPath := writeFile(t, dir, "request.json", `{
		"method": "POST",
		"path": "/orders",
		"headers": {"Content-Type": "application/json"},
		"body": {"state": "new", "id": 100}
	}`)
	cfgPath := writeFile(t, dir, "pactplan.yaml", "output:\n  colour: false\n")

	out, err := runCLI("execute", "--config", cfgPath,
		"--pact", pactPath, "--request", requestPath, "--description", "", "--interaction", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "=> BOOL(true)")
	assert.NotContains(t, out, "ERROR(")
}

func TestExecuteCommandMismatch(t *testing.T) {
	dir := t.TempDir()
	pactPath := writeFile(t, dir, "pact.json", testPact)
	requestPath := writeFile(t, dir, "request.json", `{
		"method": "POST",
		"path": "/orders",
		"headers": {"Content-Type": "application/json"},
		"body": {"state": "cancelled", "id": 100}
	}`)
	cfgPath := writeFile(t, dir, "pactplan.yaml", "output:\n  colour: false\n")

	out, err := runCLI("execute", "--config", cfgPath,
		"--pact", pactPath, "--request", requestPath, "--description", "", "--interaction", "0")
	require.Error(t, err)
	assert.Equal(t, exitError(1), err)
	assert.Contains(t, out, "ERROR(Expected 'cancelled' to be equal to 'new')")
}

func TestRenderPlanWithoutColour(t *testing.T) {
	form := ":request (\n  :method () => BOOL(true)\n)\n"
	assert.Equal(t, form, renderPlan(form, false))
}
