package runtime

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DefaultTemplateExtension is the suffix template files carry on disk
const DefaultTemplateExtension = "template.html"

// Loader represents a template loader interface. Names use dot notation for
// directories: `admin.users.list` is the template `admin/users/list`.
type Loader interface {
	Load(name string) (string, error)
}

// TemplatePath maps a dot-notation template name to a slash separated path
// without extension.
func TemplatePath(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// FileSystemLoader loads templates from the file system
type FileSystemLoader struct {
	basePaths []string
	extension string
	mu        sync.RWMutex
}

// NewFileSystemLoader creates a new file system loader. It accepts one or more
// base paths that will be searched in order when loading templates. When no
// paths are provided, it defaults to the current working directory.
func NewFileSystemLoader(basePaths ...string) *FileSystemLoader {
	paths := filteredSearchPaths(basePaths)
	if len(paths) == 0 {
		paths = append(paths, ".")
	}

	return &FileSystemLoader{
		basePaths: paths,
		extension: DefaultTemplateExtension,
	}
}

// Load loads a template from the file system
func (l *FileSystemLoader) Load(name string) (string, error) {
	l.mu.RLock()
	basePaths := append([]string(nil), l.basePaths...)
	extension := l.extension
	l.mu.RUnlock()

	file := filepath.FromSlash(TemplatePath(name))
	if extension != "" {
		file += "." + extension
	}

	var tried []string
	for _, basePath := range basePaths {
		fullPath := filepath.Join(basePath, file)
		tried = append(tried, fullPath)

		data, err := os.ReadFile(fullPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		return string(data), nil
	}

	return "", NewTemplateNotFound(name, tried, os.ErrNotExist)
}

// SetExtension changes the file suffix, given without the leading dot. An
// empty extension loads files by their bare path.
func (l *FileSystemLoader) SetExtension(extension string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.extension = strings.TrimPrefix(extension, ".")
}

// Extension returns the file suffix templates are looked up with
func (l *FileSystemLoader) Extension() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.extension
}

// SetSearchPath replaces the loader's search path list with the provided
// values. A copy is stored so callers can mutate their slice without affecting
// the loader.
func (l *FileSystemLoader) SetSearchPath(paths ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	filtered := filteredSearchPaths(paths)
	if len(filtered) == 0 {
		filtered = []string{"."}
	}
	l.basePaths = filtered
}

// AddSearchPath appends a new search path to the loader. Empty paths are
// ignored.
func (l *FileSystemLoader) AddSearchPath(path string) {
	if path == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.basePaths = append(l.basePaths, path)
}

// SearchPath returns a copy of the configured search paths.
func (l *FileSystemLoader) SearchPath() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.basePaths...)
}

// ListTemplates walks the search paths and returns the dot-notation names of
// every template file found, sorted and without duplicates.
func (l *FileSystemLoader) ListTemplates() ([]string, error) {
	l.mu.RLock()
	basePaths := append([]string(nil), l.basePaths...)
	suffix := "." + l.extension
	l.mu.RUnlock()

	seen := make(map[string]bool)
	for _, basePath := range basePaths {
		err := filepath.WalkDir(basePath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, suffix) {
				return nil
			}
			rel, err := filepath.Rel(basePath, path)
			if err != nil {
				return err
			}
			rel = strings.TrimSuffix(filepath.ToSlash(rel), suffix)
			if strings.Contains(filepath.Base(rel), ".") {
				return nil
			}
			seen[strings.ReplaceAll(rel, "/", ".")] = true
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func filteredSearchPaths(paths []string) []string {
	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// MapLoader loads templates from a map
type MapLoader struct {
	templates map[string]string
	mu        sync.RWMutex
}

// NewMapLoader creates a new map loader
func NewMapLoader(templates map[string]string) *MapLoader {
	copied := make(map[string]string, len(templates))
	for name, source := range templates {
		copied[name] = source
	}
	return &MapLoader{
		templates: copied,
	}
}

// Load loads a template from the map
func (l *MapLoader) Load(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	template, ok := l.templates[name]
	if !ok {
		return "", NewTemplateNotFound(name, []string{name}, nil)
	}
	return template, nil
}

// Set adds or replaces a template
func (l *MapLoader) Set(name, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[name] = source
}
