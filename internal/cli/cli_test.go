package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jsonstore/internal/cli"
)

// run executes the CLI with a fresh store rooted at dir and returns the
// exit code plus stdout/stderr.
func run(t *testing.T, dir string, args ...string) (code int, stdout, stderr string) {
	t.Helper()

	var out, errOut bytes.Buffer

	fullArgs := append([]string{"docstore", "--root", dir}, args...)
	code = cli.Run(os.Stdin, &out, &errOut, fullArgs)

	return code, out.String(), errOut.String()
}

func Test_Put_Then_Get_Roundtrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	code, _, stderr := run(t, dir, "put", "task", "1", "--doc", `{"title": "A"}`)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := run(t, dir, "get", "task", "1")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"title": "A"`)
	assert.Contains(t, stdout, `"type": "task"`)
}

func Test_Get_Missing_Document_Exits_NotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	code, _, _ := run(t, dir, "get", "task", "nope")
	assert.Equal(t, 2, code)
}

func Test_Put_Mismatched_Type_Is_Invalid_Args(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	code, _, stderr := run(t, dir, "put", "task", "1", "--doc", `{"type": "other"}`)
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "does not match")
}

func Test_Remove_Is_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	code, _, stderr := run(t, dir, "put", "task", "1", "--doc", `{}`)
	require.Equal(t, 0, code, stderr)

	code, _, stderr = run(t, dir, "remove", "task", "1")
	require.Equal(t, 0, code, stderr)

	code, _, stderr = run(t, dir, "remove", "task", "1")
	assert.Equal(t, 0, code, stderr)
}

func Test_List_Returns_Sorted_Ids(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, id := range []string{"3", "1", "2"} {
		code, _, stderr := run(t, dir, "put", "task", id, "--doc", `{}`)
		require.Equal(t, 0, code, stderr)
	}

	code, stdout, stderr := run(t, dir, "list", "task")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "1\n2\n3\n", stdout)
}

func Test_Query_Filters_By_Field(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	docs := map[string]string{
		"1": `{"status": "open"}`,
		"2": `{"status": "closed"}`,
		"3": `{"status": "open"}`,
	}

	for id, body := range docs {
		code, _, stderr := run(t, dir, "put", "task", id, "--doc", body)
		require.Equal(t, 0, code, stderr)
	}

	code, stdout, stderr := run(t, dir, "query", "--type", "task",
		"--filter", `{"status": {"$eq": "open"}}`, "--json")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"id": "1"`)
	assert.Contains(t, stdout, `"id": "3"`)
	assert.NotContains(t, stdout, `"id": "2"`)
}

func Test_Ensure_Index_Then_List_Indexes_Shows_It(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	code, _, stderr := run(t, dir, "put", "task", "1", "--doc", `{"status": "open"}`)
	require.Equal(t, 0, code, stderr)

	code, _, stderr = run(t, dir, "ensure-index", "task", "status")
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := run(t, dir, "list-indexes", "task")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "status\n", stdout)
}

func Test_Format_Rewrites_Noncanonical_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "task"), 0o750))
	raw := []byte("{\"type\":\"task\",\"id\":\"1\",\"z\":1,\"a\":2}")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task", "1.json"), raw, 0o600))

	code, stdout, stderr := run(t, dir, "format", "--dry-run")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "would reformat 1 file")

	code, stdout, stderr = run(t, dir, "format")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "reformatted 1 file")

	formatted, err := os.ReadFile(filepath.Join(dir, "task", "1.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 2,\n  \"id\": \"1\",\n  \"type\": \"task\",\n  \"z\": 1\n}\n", string(formatted))
}

func Test_Stats_Counts_Documents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, id := range []string{"1", "2"} {
		code, _, stderr := run(t, dir, "put", "task", id, "--doc", `{}`)
		require.Equal(t, 0, code, stderr)
	}

	code, stdout, stderr := run(t, dir, "stats", "--type", "task")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "count: 2")
}

func Test_Unknown_Command_Exits_Invalid_Args(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	code, _, stderr := run(t, dir, "bogus")
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "unknown command")
}

func Test_Claim_Slug_Then_Resolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	code, _, stderr := run(t, dir, "put", "post", "1", "--doc", `{}`)
	require.Equal(t, 0, code, stderr)

	code, _, stderr = run(t, dir, "claim-slug", "post", "us", "hello-world", "1")
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := run(t, dir, "resolve-slug", "post", "us", "hello-world")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "1\n", stdout)
}

func Test_Claim_Slug_Conflict_Is_Reported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, id := range []string{"1", "2"} {
		code, _, stderr := run(t, dir, "put", "post", id, "--doc", `{}`)
		require.Equal(t, 0, code, stderr)
	}

	code, _, stderr := run(t, dir, "claim-slug", "post", "us", "hello-world", "1")
	require.Equal(t, 0, code, stderr)

	code, _, stderr = run(t, dir, "claim-slug", "post", "us", "hello-world", "2")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already claimed")
}
