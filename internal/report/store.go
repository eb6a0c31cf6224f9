package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists screening reports. Implementations are injected into the
// screener; nothing in the core touches a global results location.
type Store interface {
	Name() string
	Save(ctx context.Context, r *Report) (string, error)
}

// DirStore writes each report into its own case directory under a root.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	if root == "" {
		return nil, fmt.Errorf("results root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create results root: %w", err)
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) Name() string { return "dir:" + s.root }

// Save writes <root>/<case id>/report.json with indented JSON and returns
// the written path.
func (s *DirStore) Save(ctx context.Context, r *Report) (string, error) {
	if r == nil {
		return "", fmt.Errorf("report is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, r.CaseID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create case dir: %w", err)
	}

	path := filepath.Join(dir, "report.json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return path, nil
}
