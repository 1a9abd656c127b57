package xtf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/sokinpui/xtf/cli"
	"github.com/sokinpui/xtf/internal/fs"
	"github.com/sokinpui/xtf/internal/parser"
	"github.com/sokinpui/xtf/internal/source"
	"github.com/sokinpui/xtf/internal/state"
	"github.com/sokinpui/xtf/internal/ui"
	"github.com/sokinpui/xtf/model"
)

// ProjectDirEnv names the environment variable consulted when no target
// directory flag is given.
const ProjectDirEnv = "XTF_PROJECT_DIRECTORY"

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// BatchResult aggregates per-change outcomes for one run, in document order.
type BatchResult struct {
	Succeeded []model.Outcome
	Failed    []model.Outcome
	Message   string
}

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	stateManager     *state.Manager
	sourceProvider   *source.Provider
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string { return e.Err.Error() }

// New creates a new App instance.
func New(cfg *cli.Config) (*App, error) {
	stateManager, err := state.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}

	return &App{
		cfg:            cfg,
		stateManager:   stateManager,
		sourceProvider: source.New(cfg.Files),
	}, nil
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// Execute runs the action selected by the flags.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.stateManager.Undo(), nil
	case a.cfg.Redo:
		return a.stateManager.Redo(), nil
	default:
		return a.processContent()
	}
}

// ApplyDocument parses content and applies every valid change sequentially,
// in document order. Document-level and directory-resolution failures
// surface as a single synthetic failed outcome rather than an error, so
// callers always get the two outcome lists.
func (a *App) ApplyDocument(content string) (*BatchResult, error) {
	changes, failure, err := a.plan(content)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}
	if len(changes) == 0 {
		return &BatchResult{Message: "No applicable changes. Nothing to do."}, nil
	}

	root, err := a.resolveTargetDir()
	if err != nil {
		return syntheticFailure(err), nil
	}

	return a.applyChanges(changes, root), nil
}

// plan parses and filters the document. A *FormatError comes back as a
// synthetic BatchResult; any other parse error is fatal.
func (a *App) plan(content string) ([]model.FileChange, *BatchResult, error) {
	result, err := parser.Parse(content)
	if err != nil {
		var formatErr *parser.FormatError
		if errors.As(err, &formatErr) {
			return nil, syntheticFailure(formatErr), nil
		}
		return nil, nil, err
	}

	for _, s := range result.Skipped {
		if s.Path != "" {
			ui.Warning("Skipping entry '%s': %s", s.Path, s.Reason)
		} else {
			ui.Warning("Skipping entry: %s", s.Reason)
		}
	}

	return a.filterByExtension(result.Changes), nil, nil
}

func syntheticFailure(err error) *BatchResult {
	return &BatchResult{Failed: []model.Outcome{{Err: err.Error()}}}
}

// processContent handles the core flow: read the source, parse it, and apply
// the changes to the target directory.
func (a *App) processContent() (model.Summary, error) {
	content, err := a.sourceProvider.GetContent()
	if err != nil {
		return model.Summary{}, err
	}
	if strings.TrimSpace(content) == "" {
		return model.Summary{Message: "Source is empty. Nothing to process."}, nil
	}

	if a.cfg.DryRun {
		return a.planOnly(content)
	}

	result, err := a.ApplyDocument(content)
	if err != nil {
		return model.Summary{}, err
	}
	return summarize(result), nil
}

// planOnly reports what would be applied without touching any file.
func (a *App) planOnly(content string) (model.Summary, error) {
	changes, failure, err := a.plan(content)
	if err != nil {
		return model.Summary{}, err
	}
	if failure != nil {
		return summarize(failure), nil
	}

	s := model.Summary{Message: fmt.Sprintf("Dry run: %d change(s) planned.", len(changes))}
	for _, c := range changes {
		switch c.Operation {
		case model.OpCreate:
			s.Created = append(s.Created, c.Path)
		case model.OpDelete:
			s.Deleted = append(s.Deleted, c.Path)
		default:
			s.Modified = append(s.Modified, c.Path)
		}
	}
	return s, nil
}

// applyChanges applies the changes one at a time, in document order: later
// entries may depend on directories or files produced by earlier ones, and
// only document order disambiguates repeated operations on the same path.
// A failed entry is recorded and never aborts the rest of the batch.
func (a *App) applyChanges(changes []model.FileChange, root string) *BatchResult {
	result := &BatchResult{}
	var ops []state.Operation

	total := len(changes)
	if a.progressCallback != nil {
		a.progressCallback(0, total)
	}

	for i, change := range changes {
		target := fs.Resolve(change.Path, root)
		// Capture the pre-image before the write, but only persist it
		// once the apply succeeds: a failed entry leaves no blob behind.
		pre := a.stateManager.CaptureImage(target)

		if _, err := fs.Apply(change, root); err != nil {
			result.Failed = append(result.Failed, model.Outcome{
				Path:         change.Path,
				AbsolutePath: target,
				Err:          err.Error(),
			})
			continue
		}
		_ = a.stateManager.StoreImage(pre)

		action := actionFor(change.Operation, pre.Hash)
		result.Succeeded = append(result.Succeeded, model.Outcome{
			Path:         change.Path,
			AbsolutePath: target,
			Action:       action,
		})
		ops = append(ops, a.operationFor(change, target, pre.Hash))

		if a.progressCallback != nil {
			a.progressCallback(i+1, total)
		}
	}

	a.stateManager.Record(ops)
	return result
}

func actionFor(op model.Operation, preHash string) string {
	switch {
	case op == model.OpDelete:
		return model.ActionDeleted
	case preHash == "":
		return model.ActionCreated
	default:
		return model.ActionModified
	}
}

// operationFor records a successful apply in history terms. Post-images of
// created and modified files are snapshotted so redo can restore them.
func (a *App) operationFor(change model.FileChange, target, preHash string) state.Operation {
	op := state.Operation{Path: target, OldHash: preHash}
	switch actionFor(change.Operation, preHash) {
	case model.ActionDeleted:
		op.Action = state.ActionDelete
	case model.ActionCreated:
		op.Action = state.ActionCreate
	default:
		op.Action = state.ActionModify
	}
	if change.Operation != model.OpDelete {
		op.NewHash = a.stateManager.Snapshot(target)
	}
	return op
}

// resolveTargetDir picks the target project directory: the -C flag wins,
// then XTF_PROJECT_DIRECTORY. The directory must exist and be a directory.
func (a *App) resolveTargetDir() (string, error) {
	dir := a.cfg.Directory
	if dir == "" {
		dir = os.Getenv(ProjectDirEnv)
	}
	if dir == "" {
		return "", fmt.Errorf("no target directory: pass -C or set %s", ProjectDirEnv)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid target directory %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("target directory %q is not accessible: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("target %q is not a directory", dir)
	}
	return abs, nil
}

func (a *App) filterByExtension(changes []model.FileChange) []model.FileChange {
	if len(a.cfg.Extensions) == 0 {
		return changes
	}

	var kept []model.FileChange
	for _, change := range changes {
		ext := filepath.Ext(change.Path)
		for _, allowed := range a.cfg.Extensions {
			if ext == allowed {
				kept = append(kept, change)
				break
			}
		}
	}
	return kept
}

// summarize flattens a BatchResult into display buckets.
func summarize(result *BatchResult) model.Summary {
	s := model.Summary{Message: result.Message}

	for _, o := range result.Succeeded {
		switch o.Action {
		case model.ActionCreated:
			s.Created = append(s.Created, o.Path)
		case model.ActionDeleted:
			s.Deleted = append(s.Deleted, o.Path)
		default:
			s.Modified = append(s.Modified, o.Path)
		}
	}

	for _, o := range result.Failed {
		if o.Path == "" {
			s.Failed = append(s.Failed, o.Err)
			continue
		}
		s.Failed = append(s.Failed, fmt.Sprintf("%s (%s)", o.Path, o.Err))
	}

	return s
}
