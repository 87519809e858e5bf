// ABOUTME: Built-in filesystem tools: read, write, list, and search
// ABOUTME: All paths must be absolute; reads are capped at 1MB of text

package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// maxFileSize caps read_file payloads.
const maxFileSize = 1024 * 1024

// ReadFileTool reads a text file from an absolute path.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file. Returns the file content as text. " +
		"Will not read binary files. Limited to 1MB."
}

func (t *ReadFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The absolute path to the file to read",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	path, argErr := stringArg(args, "path")
	if argErr != nil {
		return nil, argErr
	}
	if !filepath.IsAbs(path) {
		return nil, errInvalidPath("Path must be absolute: %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fromOSError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, errInvalidPath("Path is not a file: %s", path)
	}
	if info.Size() > maxFileSize {
		return nil, errFileTooLarge(path, info.Size(), maxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fromOSError(path, err)
	}
	if bytes.ContainsRune(content, 0) {
		return nil, errBinaryFile(path)
	}

	return Success(string(content)), nil
}

// WriteFileTool writes a text file, creating parent directories as needed.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write content to a file. Creates the file if it doesn't exist, " +
		"overwrites if it does. Creates parent directories as needed."
}

func (t *WriteFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The absolute path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	path, argErr := stringArg(args, "path")
	if argErr != nil {
		return nil, argErr
	}
	content, argErr := stringArg(args, "content")
	if argErr != nil {
		return nil, argErr
	}
	if !filepath.IsAbs(path) {
		return nil, errInvalidPath("Path must be absolute: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fromOSError(path, err)
	}

	// Write to a temp file first, then rename into place.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return nil, fromOSError(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fromOSError(path, err)
	}

	return Success(fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path)), nil
}

// ListDirectoryTool lists directory contents, flat or as a tree.
type ListDirectoryTool struct{}

func (t *ListDirectoryTool) Name() string { return "list_directory" }

func (t *ListDirectoryTool) Description() string {
	return "List the contents of a directory. Returns files and subdirectories."
}

func (t *ListDirectoryTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The absolute path to the directory to list",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Whether to list recursively",
				"default":     false,
			},
		},
		"required": []string{"path"},
	}
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	path, argErr := stringArg(args, "path")
	if argErr != nil {
		return nil, argErr
	}
	if !filepath.IsAbs(path) {
		return nil, errInvalidPath("Path must be absolute: %s", path)
	}

	if optionalBoolArg(args, "recursive", false) {
		return listTree(path)
	}
	return listFlat(path)
}

func listFlat(path string) (*Result, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fromOSError(path, err)
	}

	var dirs, files []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)

	output := fmt.Sprintf(
		"Directory: %s\n\nSubdirectories (%d):\n%s\n\nFiles (%d):\n%s",
		path, len(dirs), strings.Join(dirs, "\n"), len(files), strings.Join(files, "\n"),
	)
	return Success(output), nil
}

func listTree(path string) (*Result, error) {
	lines := []string{fmt.Sprintf("Directory tree: %s", path)}
	if err := walkTree(path, "", &lines); err != nil {
		return nil, err
	}
	return Success(strings.Join(lines, "\n")), nil
}

func walkTree(dir, prefix string, lines *[]string) *Error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fromOSError(dir, err)
	}

	// Directories first, then alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	for i, entry := range entries {
		last := i == len(entries)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		*lines = append(*lines, prefix+connector+name)
		if entry.IsDir() {
			if err := walkTree(filepath.Join(dir, entry.Name()), childPrefix, lines); err != nil {
				return err
			}
		}
	}
	return nil
}

// SearchFilesTool searches file contents for a substring, optionally
// filtering candidate files by a glob over their base names.
type SearchFilesTool struct{}

func (t *SearchFilesTool) Name() string { return "search_files" }

func (t *SearchFilesTool) Description() string {
	return "Search for files containing a pattern. Supports simple string search. " +
		"Returns matching file paths with line numbers."
}

func (t *SearchFilesTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The directory to search in",
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "The pattern to search for",
			},
			"file_glob": map[string]any{
				"type":        "string",
				"description": "Optional glob limiting which file names are searched, e.g. *.go",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Whether to search recursively",
				"default":     true,
			},
		},
		"required": []string{"path", "pattern"},
	}
}

func (t *SearchFilesTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	path, argErr := stringArg(args, "path")
	if argErr != nil {
		return nil, argErr
	}
	pattern, argErr := stringArg(args, "pattern")
	if argErr != nil {
		return nil, argErr
	}
	if !filepath.IsAbs(path) {
		return nil, errInvalidPath("Path must be absolute: %s", path)
	}

	var nameGlob glob.Glob
	if pat := optionalStringArg(args, "file_glob"); pat != "" {
		compiled, err := glob.Compile(pat)
		if err != nil {
			return nil, errInvalidArguments("invalid file_glob %q: %v", pat, err)
		}
		nameGlob = compiled
	}

	search := &fileSearch{pattern: pattern, nameGlob: nameGlob}
	if err := search.run(path, optionalBoolArg(args, "recursive", true)); err != nil {
		return nil, err
	}

	if len(search.matches) == 0 {
		return Success(fmt.Sprintf("No matches found for '%s' in %s (searched %d files)",
			pattern, path, search.filesSearched)), nil
	}
	output := fmt.Sprintf("Found %d matches in %d files (searched %d files total):\n\n%s",
		len(search.matches), search.matchedFiles, search.filesSearched,
		strings.Join(search.matches, "\n"))
	return Success(output), nil
}

type fileSearch struct {
	pattern  string
	nameGlob glob.Glob

	matches       []string
	matchedFiles  int
	filesSearched int
}

func (s *fileSearch) run(dir string, recursive bool) *Error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fromOSError(dir, err)
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if recursive {
				if err := s.run(full, recursive); err != nil {
					return err
				}
			}
			continue
		}
		if s.nameGlob != nil && !s.nameGlob.Match(entry.Name()) {
			continue
		}
		s.filesSearched++
		s.searchFile(full)
	}
	return nil
}

func (s *fileSearch) searchFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil || bytes.ContainsRune(content, 0) {
		// Skip binary and unreadable files.
		return
	}

	matched := false
	for i, line := range strings.Split(string(content), "\n") {
		if !strings.Contains(line, s.pattern) {
			continue
		}
		matched = true
		if len(line) > 200 {
			line = line[:200] + "..."
		}
		s.matches = append(s.matches, fmt.Sprintf("%s:%d: %s", path, i+1, line))
	}
	if matched {
		s.matchedFiles++
	}
}
