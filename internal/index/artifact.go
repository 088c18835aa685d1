package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	manifestFile = "manifest.json"
	passagesFile = "passages.json"
)

var (
	// ErrIndexMissing means no artifact exists at the path. Fatal at
	// startup: the serving process refuses to run without a grounding
	// corpus.
	ErrIndexMissing = errors.New("index artifact missing")

	// ErrIndexCorrupt means an artifact exists but fails validation.
	ErrIndexCorrupt = errors.New("index artifact corrupt")

	// ErrBuildInProgress means another builder holds the build lock for
	// the same index directory.
	ErrBuildInProgress = errors.New("index build already in progress")
)

// Load reads and validates the artifact at dir. The returned Index is
// immutable; readers never observe a partially written artifact because
// writers swap a complete directory into place.
func Load(dir string) (*Index, error) {
	manifestPath := filepath.Join(dir, manifestFile)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexMissing, dir)
		}
		return nil, fmt.Errorf("read manifest failed: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("%w: bad manifest: %v", ErrIndexCorrupt, err)
	}
	if manifest.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrIndexCorrupt, manifest.FormatVersion)
	}

	raw, err = os.ReadFile(filepath.Join(dir, passagesFile))
	if err != nil {
		return nil, fmt.Errorf("%w: missing passages: %v", ErrIndexCorrupt, err)
	}
	var passages []Passage
	if err := json.Unmarshal(raw, &passages); err != nil {
		return nil, fmt.Errorf("%w: bad passages: %v", ErrIndexCorrupt, err)
	}

	if len(passages) != manifest.PassageCount {
		return nil, fmt.Errorf("%w: passage count %d does not match manifest %d",
			ErrIndexCorrupt, len(passages), manifest.PassageCount)
	}
	seen := make(map[int]struct{}, len(passages))
	for _, p := range passages {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate passage id %d", ErrIndexCorrupt, p.ID)
		}
		seen[p.ID] = struct{}{}
		if len(p.Vector) != manifest.Dimension {
			return nil, fmt.Errorf("%w: passage %d has dimension %d, manifest says %d",
				ErrIndexCorrupt, p.ID, len(p.Vector), manifest.Dimension)
		}
	}

	return &Index{manifest: manifest, passages: passages}, nil
}

// Write persists a new artifact at dir, replacing any prior one atomically:
// the artifact is staged in a temporary sibling directory and renamed over
// the target. On failure the prior artifact remains valid and untouched.
func Write(dir string, manifest Manifest, passages []Passage) error {
	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create index parent dir failed: %w", err)
	}

	staging, err := os.MkdirTemp(parent, filepath.Base(dir)+".staging-")
	if err != nil {
		return fmt.Errorf("create staging dir failed: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := writeJSON(filepath.Join(staging, manifestFile), manifest); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(staging, passagesFile), passages); err != nil {
		return err
	}

	// Swap. Rename over a non-empty directory is not portable, so the old
	// artifact is moved aside first and restored if the swap fails.
	old := ""
	if _, err := os.Stat(dir); err == nil {
		old = dir + ".old-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move prior artifact aside failed: %w", err)
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("swap index artifact failed: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s failed: %w", filepath.Base(path), err)
	}
	return nil
}

// BuildLock provides mutual exclusion between builds targeting the same
// index directory.
type BuildLock struct {
	path string
}

// AcquireBuildLock takes the lock or fails with ErrBuildInProgress.
func AcquireBuildLock(dir string) (*BuildLock, error) {
	path := filepath.Clean(dir) + ".build.lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir failed: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBuildInProgress, path)
		}
		return nil, fmt.Errorf("create build lock failed: %w", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	_ = f.Close()
	return &BuildLock{path: path}, nil
}

func (l *BuildLock) Release() error {
	return os.Remove(l.path)
}
