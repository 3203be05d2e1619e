package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/probehq/probe/internal/gitignore"
	"github.com/probehq/probe/internal/perr"
)

// gitignoreCacheSize bounds the number of parsed nested-.gitignore
// matchers kept in memory during a scan.
const gitignoreCacheSize = 1000

// Scanner discovers indexable files in a project directory.
type Scanner struct {
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	cacheMu        sync.RWMutex
}

// New creates a Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create gitignore cache: %w", err)
	}
	return &Scanner{gitignoreCache: cache}, nil
}

// Scan walks opts.RootDir and streams eligible files on the returned
// channel, which is closed once the walk finishes. Per-path errors (a
// directory that cannot be read, a file that cannot be stat'ed) are sent
// as ScanResult.Error and do not stop the walk; a .gitignore that fails to
// load is skipped without an error and its rules are not applied. Only a
// failure to resolve/stat RootDir itself returns an error directly.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "resolve project root")
	}
	canonicalRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "resolve project root")
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "stat project root")
	}
	if !info.IsDir() {
		return nil, perr.Newf(perr.IoError, "root path is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	results := make(chan ScanResult, 64)

	go func() {
		defer close(results)
		s.scan(ctx, absRoot, canonicalRoot, opts, maxFileSize, results)
	}()

	return results, nil
}

func (s *Scanner) scan(ctx context.Context, absRoot, canonicalRoot string, opts *ScanOptions, maxFileSize int64, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			s.emitError(ctx, results, perr.Wrap(perr.IoError, walkErr, "walk "+path))
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath == IndexDirName || s.shouldExcludeDir(relPath, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !opts.FollowSymlinks {
				return nil
			}
			target, err := filepath.EvalSymlinks(path)
			if err != nil || !withinRoot(canonicalRoot, target) {
				// Broken symlink or one that escapes the project root: skip
				// silently rather than risk indexing outside RootDir.
				return nil
			}
			info, err := os.Stat(target)
			if err != nil || info.IsDir() {
				return nil
			}
		}

		if s.shouldExcludeFile(relPath, absRoot, opts) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.emitError(ctx, results, perr.Wrap(perr.IoError, err, "stat "+path))
			return nil
		}
		if info.Size() > maxFileSize {
			return nil
		}
		if isBinaryFile(path) {
			return nil
		}

		file := &FileInfo{
			Path:        relPath,
			AbsPath:     path,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			Language:    DetectLanguage(relPath),
			IsGenerated: isGeneratedFile(path),
		}

		select {
		case results <- ScanResult{File: file}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		s.emitError(ctx, results, perr.Wrap(perr.IoError, err, "scan project root"))
	}
}

func (s *Scanner) emitError(ctx context.Context, results chan<- ScanResult, err error) {
	select {
	case results <- ScanResult{Error: err}:
	case <-ctx.Done():
	}
}

// withinRoot reports whether a resolved symlink target stays inside the
// canonical project root.
func withinRoot(canonicalRoot, target string) bool {
	rel, err := filepath.Rel(canonicalRoot, target)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..")
}

func (s *Scanner) shouldExcludeDir(relPath string, opts *ScanOptions) bool {
	for _, pattern := range defaultExcludeDirs {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	return false
}

func (s *Scanner) shouldExcludeFile(relPath, absRoot string, opts *ScanOptions) bool {
	base := filepath.Base(relPath)

	for _, pattern := range sensitiveFilePatterns {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range defaultExcludeFiles {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}

	respectGitignore := opts.RespectGitignore
	if respectGitignore && s.isGitignored(relPath, absRoot) {
		return true
	}

	return false
}

// matchDirPattern checks a directory's relative path against one
// gitignore-ish exclude pattern.
func matchDirPattern(relPath, pattern string) bool {
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		suffix = strings.TrimSuffix(suffix, "/**")
		for _, part := range strings.Split(relPath, "/") {
			if part == suffix {
				return true
			}
		}
		return false
	}

	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return relPath == prefix || strings.HasPrefix(relPath, prefix+"/")
	}

	return relPath == pattern || strings.HasPrefix(relPath, pattern+"/")
}

// matchFilePattern checks a file's relative path/basename against one
// exclude pattern. Supports the subset of glob syntax probe's default
// exclude lists and user-supplied probe.yml excludes use: **/ prefixes,
// dir/** suffixes, dir/glob*.ext, leading/trailing *, and exact names.
func matchFilePattern(baseName, relPath, pattern string) bool {
	if strings.HasSuffix(pattern, "/**") && !strings.HasPrefix(pattern, "**/") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(relPath, prefix+"/")
	}

	if strings.Contains(pattern, "/") && strings.Contains(pattern, "*") && !strings.HasPrefix(pattern, "**/") {
		dir := filepath.Dir(pattern)
		filePattern := filepath.Base(pattern)
		if filepath.Dir(relPath) == dir {
			if matched, err := filepath.Match(filePattern, baseName); err == nil && matched {
				return true
			}
		}
		return false
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if strings.HasPrefix(suffix, "*.") {
			return strings.HasSuffix(baseName, strings.TrimPrefix(suffix, "*"))
		}
		for _, part := range strings.Split(relPath, "/") {
			if part == suffix {
				return true
			}
		}
		return false
	}

	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1 {
		middle := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")
		return strings.Contains(strings.ToLower(baseName), strings.ToLower(middle))
	}

	if strings.HasSuffix(pattern, "*") && strings.HasPrefix(pattern, ".") {
		return strings.HasPrefix(baseName, strings.TrimSuffix(pattern, "*"))
	}

	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(baseName, strings.TrimPrefix(pattern, "*"))
	}

	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(baseName, strings.TrimSuffix(pattern, "*"))
	}

	return baseName == pattern
}

// isBinaryFile sniffs the first binarySniffWindow bytes for a NUL byte.
func isBinaryFile(path string) bool {
	ext := extension(path)
	if binaryExtensions[ext] {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, binarySniffWindow)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}

// isGeneratedFile sniffs the first 1KB for common generated-file headers.
// It only annotates FileInfo.IsGenerated; it never excludes the file.
func isGeneratedFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	content := string(buf[:n])

	markers := []string{
		"// Code generated",
		"// DO NOT EDIT",
		"/* DO NOT EDIT",
		"# Generated by",
		"<!-- AUTO-GENERATED -->",
		"// Generated by",
		"/* Generated by",
	}
	for _, marker := range markers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

func (s *Scanner) isGitignored(relPath, absRoot string) bool {
	if m := s.getGitignoreMatcher(absRoot, ""); m != nil && m.Match(relPath, false) {
		return true
	}

	parts := strings.Split(filepath.Dir(relPath), "/")
	currentDir := absRoot
	var currentBase string
	for _, part := range parts {
		if part == "." || part == "" {
			continue
		}
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = currentBase + "/" + part
		}
		if m := s.getGitignoreMatcher(currentDir, currentBase); m != nil && m.Match(relPath, false) {
			return true
		}
	}
	return false
}

func (s *Scanner) getGitignoreMatcher(dir, base string) *gitignore.Matcher {
	s.cacheMu.RLock()
	matcher, ok := s.gitignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err != nil {
		return nil
	}

	matcher = gitignore.New()
	if err := matcher.AddFromFile(gitignorePath, base); err != nil {
		return nil
	}

	s.cacheMu.Lock()
	s.gitignoreCache.Add(dir, matcher)
	s.cacheMu.Unlock()
	return matcher
}

// defaultExcludeDirs are always skipped, on top of any project .gitignore
// and the caller's ExcludePatterns.
var defaultExcludeDirs = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/.aws/**",
	"**/.gcp/**",
	"**/.azure/**",
	"**/.ssh/**",
}

var defaultExcludeFiles = []string{
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
	"**/Cargo.lock",
}

// sensitiveFilePatterns are never indexed regardless of ExcludePatterns.
var sensitiveFilePatterns = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*credentials*",
	"*secrets*",
	"*password*",
	".netrc",
	".npmrc",
	".pypirc",
	"id_rsa",
	"id_dsa",
	"id_ecdsa",
	"id_ed25519",
}
