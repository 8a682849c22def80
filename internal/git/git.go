package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

type ChangedFile struct {
	Path    string // relative to the repository root
	Deleted bool
}

// GetChangedFiles runs git diff in dir and returns the files that differ
// from baseRef, including uncommitted changes.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--no-color", "-U0", baseRef)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	return parseDiff(output)
}

// RepoRoot returns the top-level directory of the repository containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ChangedSet returns the absolute paths of files changed since baseRef that
// still exist.
func ChangedSet(ctx context.Context, dir, baseRef string) (map[string]bool, error) {
	root, err := RepoRoot(ctx, dir)
	if err != nil {
		return nil, err
	}
	changes, err := GetChangedFiles(ctx, root, baseRef)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(changes))
	for _, c := range changes {
		if c.Deleted {
			continue
		}
		set[filepath.Join(root, filepath.FromSlash(c.Path))] = true
	}
	return set, nil
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var changes []ChangedFile
	var currentFile *ChangedFile

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git") {
			// diff --git a/path b/path: keep the b/ (new) path
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				path := strings.TrimPrefix(parts[3], "b/")

				if currentFile != nil {
					changes = append(changes, *currentFile)
				}
				currentFile = &ChangedFile{Path: path}
			}
			continue
		}

		if currentFile == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "deleted file mode"):
			currentFile.Deleted = true
		case strings.HasPrefix(line, "rename to "):
			currentFile.Path = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "+++ b/"):
			currentFile.Path = strings.TrimPrefix(line, "+++ b/")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}

	if currentFile != nil {
		changes = append(changes, *currentFile)
	}

	return changes, nil
}
