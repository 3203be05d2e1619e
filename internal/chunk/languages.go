package chunk

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageRegistry manages the structural languages probe can parse and
// the tree-sitter grammar backing each one.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig // keyed by language tag
	extToLang   map[string]string          // extension -> language tag
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry builds a registry covering probe's closed structural
// filetype set: go, java, ts, js, py, rs.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}

	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	r.registerJava()
	r.registerRust()

	return r
}

// GetByExtension returns the language configuration for a file extension.
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	langName, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}

	config, ok := r.configs[langName]
	return config, ok
}

// GetByName returns the language configuration by tag.
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the tree-sitter grammar for a language tag.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions returns every registered extension.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *LanguageRegistry) registerLanguage(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang

	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

func (r *LanguageRegistry) registerGo() {
	config := &LanguageConfig{
		Name:          "go",
		Extensions:    []string{".go"},
		FunctionTypes: []string{"function_declaration"},
		MethodTypes:   []string{"method_declaration"},
		ClassTypes:    []string{}, // Go has no classes
		TypeDefTypes:  []string{"type_declaration"},
		InterfaceTypes: []string{
			// Go interfaces surface as type_declaration too, so they
			// classify as types like structs do and get no interface chunk.
		},
		ConstantTypes: []string{"const_declaration"},
		VariableTypes: []string{"var_declaration"},
		NameField:     "name",
	}
	r.registerLanguage(config, golang.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	tsConfig := &LanguageConfig{
		Name:           "ts",
		Extensions:     []string{".ts"},
		FunctionTypes:  []string{"function_declaration"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		TypeDefTypes:   []string{"type_alias_declaration"},
		ConstantTypes:  []string{"lexical_declaration"},
		VariableTypes:  []string{"variable_declaration"},
		NameField:      "name",
	}
	r.registerLanguage(tsConfig, typescript.GetLanguage())

	tsxConfig := &LanguageConfig{
		Name:           "tsx",
		Extensions:     []string{".tsx"},
		FunctionTypes:  tsConfig.FunctionTypes,
		MethodTypes:    tsConfig.MethodTypes,
		ClassTypes:     tsConfig.ClassTypes,
		InterfaceTypes: tsConfig.InterfaceTypes,
		TypeDefTypes:   tsConfig.TypeDefTypes,
		ConstantTypes:  tsConfig.ConstantTypes,
		VariableTypes:  tsConfig.VariableTypes,
		NameField:      tsConfig.NameField,
	}
	r.registerLanguage(tsxConfig, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	jsConfig := &LanguageConfig{
		Name:           "js",
		Extensions:     []string{".js", ".mjs"},
		FunctionTypes:  []string{"function_declaration", "function"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{}, // JS has no interfaces
		TypeDefTypes:   []string{},
		ConstantTypes:  []string{"lexical_declaration"},
		VariableTypes:  []string{"variable_declaration"},
		NameField:      "name",
	}
	r.registerLanguage(jsConfig, javascript.GetLanguage())

	jsxConfig := &LanguageConfig{
		Name:           "jsx",
		Extensions:     []string{".jsx"},
		FunctionTypes:  jsConfig.FunctionTypes,
		MethodTypes:    jsConfig.MethodTypes,
		ClassTypes:     jsConfig.ClassTypes,
		InterfaceTypes: jsConfig.InterfaceTypes,
		TypeDefTypes:   jsConfig.TypeDefTypes,
		ConstantTypes:  jsConfig.ConstantTypes,
		VariableTypes:  jsConfig.VariableTypes,
		NameField:      jsConfig.NameField,
	}
	r.registerLanguage(jsxConfig, javascript.GetLanguage())
}

func (r *LanguageRegistry) registerPython() {
	config := &LanguageConfig{
		Name:           "py",
		Extensions:     []string{".py", ".pyw"},
		FunctionTypes:  []string{"function_definition"},
		MethodTypes:    []string{}, // methods are function_definition inside a class body
		ClassTypes:     []string{"class_definition"},
		InterfaceTypes: []string{}, // Python has no interfaces
		TypeDefTypes:   []string{},
		ConstantTypes:  []string{},
		VariableTypes:  []string{"assignment"},
		NameField:      "name",
	}
	r.registerLanguage(config, python.GetLanguage())
}

// registerJava adds the archetype language for classes with both fields
// and nested methods: class/interface bodies hold their own
// method_declaration children rather than Go's package-level functions.
func (r *LanguageRegistry) registerJava() {
	config := &LanguageConfig{
		Name:           "java",
		Extensions:     []string{".java"},
		FunctionTypes:  []string{}, // Java has no free functions
		MethodTypes:    []string{"method_declaration", "constructor_declaration"},
		ClassTypes:     []string{"class_declaration", "enum_declaration", "record_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		TypeDefTypes:   []string{},
		ConstantTypes:  []string{"field_declaration"},
		VariableTypes:  []string{},
		NameField:      "name",
	}
	r.registerLanguage(config, java.GetLanguage())
}

func (r *LanguageRegistry) registerRust() {
	config := &LanguageConfig{
		Name:           "rs",
		Extensions:     []string{".rs"},
		FunctionTypes:  []string{"function_item"},
		MethodTypes:    []string{"function_item"}, // checked before FunctionTypes, so every function_item, inside an impl or not, classifies as a method
		ClassTypes:     []string{"struct_item", "enum_item"},
		InterfaceTypes: []string{"trait_item"},
		TypeDefTypes:   []string{"type_item"},
		ConstantTypes:  []string{"const_item", "static_item"},
		VariableTypes:  []string{"let_declaration"},
		NameField:      "name",
	}
	r.registerLanguage(config, rust.GetLanguage())
}

// defaultRegistry is the process-wide language registry; tree-sitter
// grammars are safe to share across goroutines once registered.
var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the shared language registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
