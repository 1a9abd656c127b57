package xtf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/xtf/cli"
	"github.com/sokinpui/xtf/model"
	"github.com/sokinpui/xtf/xtf"
)

const createDoc = `<code_changes>
  <changed_files>
    <file>
      <file_summary>Add index</file_summary>
      <file_operation>CREATE</file_operation>
      <file_path>web/src/index.js</file_path>
      <file_code><![CDATA[console.log("hello world");]]></file_code>
    </file>
  </changed_files>
</code_changes>`

func newApp(t *testing.T, cfg *cli.Config) *xtf.App {
	t.Helper()
	t.Chdir(t.TempDir())

	app, err := xtf.New(cfg)
	require.NoError(t, err)
	return app
}

func TestApplyDocumentRoundTrip(t *testing.T) {
	target := t.TempDir()
	app := newApp(t, &cli.Config{Directory: target})

	result, err := app.ApplyDocument(createDoc)
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.Empty(t, result.Failed)

	outcome := result.Succeeded[0]
	assert.Equal(t, "web/src/index.js", outcome.Path)
	assert.Equal(t, filepath.Join(target, "web/src/index.js"), outcome.AbsolutePath)
	assert.Equal(t, model.ActionCreated, outcome.Action)

	content, err := os.ReadFile(outcome.AbsolutePath)
	require.NoError(t, err)
	assert.Equal(t, `console.log("hello world");`, string(content))
}

func TestApplyDocumentSequentialOrder(t *testing.T) {
	target := t.TempDir()
	app := newApp(t, &cli.Config{Directory: target})

	doc := `<code_changes>
  <changed_files>
    <file>
      <file_summary>First write</file_summary>
      <file_operation>CREATE</file_operation>
      <file_path>x.txt</file_path>
      <file_code>A</file_code>
    </file>
    <file>
      <file_summary>Second write wins</file_summary>
      <file_operation>UPDATE</file_operation>
      <file_path>x.txt</file_path>
      <file_code>B</file_code>
    </file>
  </changed_files>
</code_changes>`

	result, err := app.ApplyDocument(doc)
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 2)
	assert.Equal(t, model.ActionCreated, result.Succeeded[0].Action)
	assert.Equal(t, model.ActionModified, result.Succeeded[1].Action)

	content, err := os.ReadFile(filepath.Join(target, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "B", string(content))
}

func TestApplyDocumentDeleteMissingSucceeds(t *testing.T) {
	app := newApp(t, &cli.Config{Directory: t.TempDir()})

	doc := `<code_changes>
  <changed_files>
    <file>
      <file_summary>Remove file that was never there</file_summary>
      <file_operation>DELETE</file_operation>
      <file_path>ghost.txt</file_path>
    </file>
  </changed_files>
</code_changes>`

	result, err := app.ApplyDocument(doc)
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, model.ActionDeleted, result.Succeeded[0].Action)
	assert.Empty(t, result.Failed)
}

func TestApplyDocumentFormatErrorIsSynthetic(t *testing.T) {
	app := newApp(t, &cli.Config{Directory: t.TempDir()})

	result, err := app.ApplyDocument("not a change document")
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Err, "code_changes")
}

func TestApplyDocumentNoTargetDirectory(t *testing.T) {
	t.Setenv(xtf.ProjectDirEnv, "")
	app := newApp(t, &cli.Config{})

	result, err := app.ApplyDocument(createDoc)
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Err, xtf.ProjectDirEnv)
}

func TestApplyDocumentEnvDirectoryFallback(t *testing.T) {
	target := t.TempDir()
	t.Setenv(xtf.ProjectDirEnv, target)
	app := newApp(t, &cli.Config{})

	result, err := app.ApplyDocument(createDoc)
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.FileExists(t, filepath.Join(target, "web/src/index.js"))
}

func TestApplyDocumentExtensionFilter(t *testing.T) {
	target := t.TempDir()
	app := newApp(t, &cli.Config{Directory: target, Extensions: []string{".py"}})

	doc := `<code_changes>
  <changed_files>
    <file>
      <file_summary>Python file passes the filter</file_summary>
      <file_operation>CREATE</file_operation>
      <file_path>main.py</file_path>
      <file_code>print("ok")</file_code>
    </file>
    <file>
      <file_summary>JavaScript file is filtered out</file_summary>
      <file_operation>CREATE</file_operation>
      <file_path>main.js</file_path>
      <file_code>console.log("no")</file_code>
    </file>
  </changed_files>
</code_changes>`

	result, err := app.ApplyDocument(doc)
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, "main.py", result.Succeeded[0].Path)
	assert.NoFileExists(t, filepath.Join(target, "main.js"))
}

func TestProgressCallbackReportsEachChange(t *testing.T) {
	app := newApp(t, &cli.Config{Directory: t.TempDir()})

	type update struct{ current, total int }
	var updates []update
	app.SetProgressCallback(func(current, total int) {
		updates = append(updates, update{current, total})
	})

	_, err := app.ApplyDocument(createDoc)
	require.NoError(t, err)

	require.NotEmpty(t, updates)
	assert.Equal(t, update{0, 1}, updates[0])
	assert.Equal(t, update{1, 1}, updates[len(updates)-1])
}

func TestExecuteUndoRestoresFiles(t *testing.T) {
	target := t.TempDir()
	app := newApp(t, &cli.Config{Directory: target})

	_, err := app.ApplyDocument(createDoc)
	require.NoError(t, err)
	written := filepath.Join(target, "web/src/index.js")
	assert.FileExists(t, written)

	undoApp, err := xtf.New(&cli.Config{Undo: true})
	require.NoError(t, err)

	summary, err := undoApp.Execute()
	require.NoError(t, err)
	assert.Empty(t, summary.Failed)
	assert.NoFileExists(t, written)
}
