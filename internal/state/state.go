package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sokinpui/xtf/internal/fs"
	"github.com/sokinpui/xtf/model"
)

const (
	stateDirName  = ".xtf"
	stateFileName = "state.json"
)

// Actions recorded in an Operation.
const (
	ActionCreate = "create"
	ActionModify = "modify"
	ActionDelete = "delete"
)

// Operation records one applied file mutation so it can be undone.
type Operation struct {
	Action  string `json:"action"`
	Path    string `json:"path"`               // absolute target path
	OldHash string `json:"old_hash,omitempty"` // pre-image blob; empty for create
	NewHash string `json:"new_hash,omitempty"` // post-image blob; empty for delete
}

// HistoryEntry represents one complete run of the tool.
type HistoryEntry struct {
	Timestamp  int64       `json:"timestamp"`
	Operations []Operation `json:"operations"`
}

// State is the persisted undo/redo history.
type State struct {
	History      []HistoryEntry `json:"history"`
	CurrentIndex int            `json:"current_index"`
}

// Manager handles the lifecycle of the state file and its blob store.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot anchors the state directory at the repository root so undo
// works from any subdirectory.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return os.Getwd()
	}
	return strings.TrimSpace(string(out)), nil
}

// New creates and loads a state manager rooted at dir. An empty dir anchors
// the state at the git root, falling back to the working directory.
func New(dir string) (*Manager, error) {
	if dir == "" {
		root, err := findGitRoot()
		if err != nil {
			return nil, fmt.Errorf("could not locate state root: %w", err)
		}
		dir = root
	}

	stateDir := filepath.Join(dir, stateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}

	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		m.state = &State{CurrentIndex: -1, History: []HistoryEntry{}}
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = &State{CurrentIndex: -1, History: []HistoryEntry{}}
			return nil
		}
		return err
	}

	m.state = &State{}
	if err := json.Unmarshal(data, m.state); err != nil {
		return fmt.Errorf("invalid state file: %w", err)
	}
	return nil
}

func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.statePath, data, 0644)
}

// Image is a file's content captured at a point in time, not yet persisted
// to the blob store. The zero Image stands for a missing file.
type Image struct {
	Hash    string
	content []byte
}

// CaptureImage reads path and hashes its content without touching the blob
// store. A missing or unreadable file yields the zero Image.
func (m *Manager) CaptureImage(path string) Image {
	content, err := os.ReadFile(path)
	if err != nil {
		return Image{}
	}
	sum := sha256.Sum256(content)
	return Image{Hash: hex.EncodeToString(sum[:]), content: content}
}

// StoreImage persists a captured image to the blob store. Storing the zero
// Image is a no-op.
func (m *Manager) StoreImage(img Image) error {
	if img.Hash == "" {
		return nil
	}
	return m.writeBlob(img.Hash, img.content)
}

// Snapshot stores the current content of path in the blob store and returns
// its hash. A missing or unreadable file yields an empty hash.
func (m *Manager) Snapshot(path string) string {
	img := m.CaptureImage(path)
	if err := m.StoreImage(img); err != nil {
		return ""
	}
	return img.Hash
}

// Record appends one run's operations to the history, discarding any redo
// tail left by earlier undos.
func (m *Manager) Record(ops []Operation) {
	if len(ops) == 0 {
		return
	}
	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Operations: ops,
	})
	m.state.CurrentIndex++
	_ = m.save()
}

// Undo rolls back the most recent run. Files whose current content no longer
// matches the recorded post-image are skipped and reported as failed.
func (m *Manager) Undo() model.Summary {
	if m.state.CurrentIndex < 0 {
		return model.Summary{Message: "No operation to undo."}
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	m.state.CurrentIndex--
	_ = m.save()

	s := model.Summary{Message: "Undid last operation."}
	for _, op := range ops {
		if !m.undoFile(op) {
			s.Failed = append(s.Failed, op.Path)
			continue
		}
		switch op.Action {
		case ActionCreate:
			s.Deleted = append(s.Deleted, op.Path)
		case ActionDelete:
			s.Created = append(s.Created, op.Path)
		default:
			s.Modified = append(s.Modified, op.Path)
		}
	}
	return s
}

// Redo re-applies the most recently undone run.
func (m *Manager) Redo() model.Summary {
	if m.state.CurrentIndex+1 >= len(m.state.History) {
		return model.Summary{Message: "No operation to redo."}
	}
	m.state.CurrentIndex++
	ops := m.state.History[m.state.CurrentIndex].Operations
	_ = m.save()

	s := model.Summary{Message: "Redid last undone operation."}
	for _, op := range ops {
		if !m.redoFile(op) {
			s.Failed = append(s.Failed, op.Path)
			continue
		}
		switch op.Action {
		case ActionCreate:
			s.Created = append(s.Created, op.Path)
		case ActionDelete:
			s.Deleted = append(s.Deleted, op.Path)
		default:
			s.Modified = append(s.Modified, op.Path)
		}
	}
	return s
}

func (m *Manager) undoFile(op Operation) bool {
	currentHash, _ := fs.GetFileSHA256(op.Path)
	if currentHash != op.NewHash {
		// Edited out of band since the run; leave it alone.
		return false
	}

	switch op.Action {
	case ActionCreate:
		return os.Remove(op.Path) == nil
	case ActionDelete:
		if op.OldHash == "" {
			// Deleting a missing file was a no-op; so is undoing it.
			return true
		}
		content, err := m.readBlob(op.OldHash)
		if err != nil {
			return false
		}
		if err := os.MkdirAll(filepath.Dir(op.Path), 0755); err != nil {
			return false
		}
		return os.WriteFile(op.Path, content, 0644) == nil
	default:
		content, err := m.readBlob(op.OldHash)
		if err != nil {
			return false
		}
		return os.WriteFile(op.Path, content, 0644) == nil
	}
}

func (m *Manager) redoFile(op Operation) bool {
	currentHash, _ := fs.GetFileSHA256(op.Path)
	if currentHash != op.OldHash {
		return false
	}

	switch op.Action {
	case ActionDelete:
		if op.OldHash == "" {
			return true
		}
		return os.Remove(op.Path) == nil
	default:
		content, err := m.readBlob(op.NewHash)
		if err != nil {
			return false
		}
		if err := os.MkdirAll(filepath.Dir(op.Path), 0755); err != nil {
			return false
		}
		return os.WriteFile(op.Path, content, 0644) == nil
	}
}
