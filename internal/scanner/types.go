// Package scanner implements FileScanner: it walks a project root, honors
// ignore rules, and emits the files eligible for chunking and indexing.
package scanner

import "time"

// FileInfo describes one file discovered by a scan.
type FileInfo struct {
	Path        string // relative to the project root, forward-slash separated
	AbsPath     string // absolute path on disk
	Size        int64
	ModTime     time.Time
	Language    string // probe's filetype tag, "" if unrecognized
	IsGenerated bool   // sniffed header markers; metadata, not an exclusion
}

// ScanOptions configures a Scan call.
type ScanOptions struct {
	// RootDir is the project root to scan.
	RootDir string

	// ExcludePatterns are additional glob-style patterns (the subset
	// matchFilePattern and matchDirPattern support) applied on top of any
	// .gitignore files found in the tree.
	ExcludePatterns []string

	// RespectGitignore enables nested .gitignore parsing; the zero value
	// (false) leaves .gitignore files unread.
	RespectGitignore bool

	// MaxFileSize caps eligible file size in bytes (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// FollowSymlinks allows following symlinks that resolve within RootDir.
	FollowSymlinks bool
}

// ScanResult is one element of the channel Scan returns: either a file or
// a non-fatal per-path error.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default size cap (1 MiB): probe chunks source
// text, not assets, so there's no need for a larger default.
const DefaultMaxFileSize int64 = 1 << 20

// binarySniffWindow is how many leading bytes are checked for a NUL byte
// when best-effort-detecting binary content.
const binarySniffWindow = 8 * 1024

// IndexDirName is the hidden sibling directory the core never scans.
const IndexDirName = ".probe"

// languageMap maps file extensions (and a few bare filenames) to probe's
// filetype tags. Entries outside the structural {java,ts,js,py,rs,go}
// set are still recognized for context/snippet purposes but always chunk
// through the generic fallback.
var languageMap = map[string]string{
	".go": "go",

	".js":  "js",
	".jsx": "js",
	".mjs": "js",
	".ts":  "ts",
	".tsx": "ts",

	".py":  "py",
	".pyw": "py",
	".pyi": "py",

	".rs": "rs",

	".java": "java",

	".md":       "markdown",
	".mdx":      "markdown",
	".markdown": "markdown",
	".rst":      "rst",
	".txt":      "text",

	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".xml":  "xml",
	".ini":  "ini",

	".sh":   "shell",
	".bash": "shell",
	".zsh":  "shell",

	".rb": "ruby",
	".kt": "kotlin",

	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
	".hpp": "cpp",
	".cc":  "cpp",
	".cs":  "csharp",

	".sql": "sql",

	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"makefile":    "makefile",
	"GNUmakefile": "makefile",
}

// binaryExtensions are skipped outright regardless of content sniffing.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".pdf": true, ".zip": true, ".tar": true,
	".gz": true, ".bz2": true, ".xz": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".o": true, ".obj": true, ".class": true, ".jar": true, ".wasm": true,
	".bin": true, ".dat": true, ".db": true, ".sqlite": true, ".woff": true,
	".woff2": true, ".ttf": true, ".otf": true, ".eot": true, ".mp3": true,
	".mp4": true, ".mov": true, ".avi": true, ".webm": true, ".pyc": true,
}

// structuralLanguages is the closed set of filetypes that get tree-sitter
// based structural chunking; everything else is "generic".
var structuralLanguages = map[string]bool{
	"go": true, "java": true, "ts": true, "js": true, "py": true, "rs": true,
}

// IsStructural reports whether lang gets AST-aware chunking rather than
// the generic line-window fallback.
func IsStructural(lang string) bool {
	return structuralLanguages[lang]
}

// DetectLanguage detects probe's filetype tag from a file path.
func DetectLanguage(path string) string {
	if lang, ok := languageMap[baseName(path)]; ok {
		return lang
	}
	return languageMap[extension(path)]
}

// baseName returns the file name from a path.
func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

// extension returns the file extension from a path (including the dot),
// lower-cased.
func extension(path string) string {
	base := baseName(path)
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return toLowerASCII(base[i:])
		}
	}
	return ""
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
