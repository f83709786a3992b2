package executor

import (
	"path/filepath"
	"sort"
	"strings"
)

// Language describes how one programming language is executed by each backend.
type Language struct {
	Name       string   `mapstructure:"name"`
	Judge0ID   int      `mapstructure:"judge0_id"`
	Image      string   `mapstructure:"image"`
	FileName   string   `mapstructure:"file_name"`
	Compile    []string `mapstructure:"compile"`
	Run        []string `mapstructure:"run"`
	Extensions []string `mapstructure:"extensions"`
}

// Executable reports whether any backend can run the language.
func (l Language) Executable() bool {
	return l.Judge0ID > 0 || (l.Image != "" && len(l.Run) > 0)
}

// DefaultLanguages is the built-in language table.
func DefaultLanguages() []Language {
	return []Language{
		{Name: "python", Judge0ID: 71, Image: "python:3.11-alpine", FileName: "main.py", Run: []string{"python", "main.py"}, Extensions: []string{".py"}},
		{Name: "java", Judge0ID: 62, Image: "eclipse-temurin:21-jdk-alpine", FileName: "Main.java", Compile: []string{"javac", "Main.java"}, Run: []string{"java", "Main"}, Extensions: []string{".java"}},
		{Name: "cpp", Judge0ID: 54, Image: "gcc:13", FileName: "main.cpp", Compile: []string{"g++", "-O2", "-o", "main", "main.cpp"}, Run: []string{"./main"}, Extensions: []string{".cpp", ".cc", ".cxx", ".hpp"}},
		{Name: "c", Judge0ID: 50, Image: "gcc:13", FileName: "main.c", Compile: []string{"gcc", "-O2", "-o", "main", "main.c"}, Run: []string{"./main"}, Extensions: []string{".c", ".h"}},
		{Name: "csharp", Judge0ID: 51, Extensions: []string{".cs"}},
		{Name: "assembly", Judge0ID: 45, Extensions: []string{".asm", ".s"}},
		{Name: "html", Extensions: []string{".html", ".htm"}},
		{Name: "sudo"},
	}
}

// LanguageTable is an immutable lookup built once at startup.
type LanguageTable struct {
	byName      map[string]Language
	byExtension map[string]string
	names       []string
}

// NewLanguageTable copies languages into a lookup keyed by lower-case name.
func NewLanguageTable(languages []Language) *LanguageTable {
	table := &LanguageTable{
		byName:      make(map[string]Language, len(languages)),
		byExtension: make(map[string]string),
	}
	for _, language := range languages {
		name := strings.ToLower(strings.TrimSpace(language.Name))
		if name == "" {
			continue
		}
		copied := language
		copied.Name = name
		copied.Compile = append([]string(nil), language.Compile...)
		copied.Run = append([]string(nil), language.Run...)
		copied.Extensions = append([]string(nil), language.Extensions...)
		if _, exists := table.byName[name]; !exists {
			table.names = append(table.names, name)
		}
		table.byName[name] = copied
		for _, ext := range copied.Extensions {
			table.byExtension[strings.ToLower(ext)] = name
		}
	}
	sort.Strings(table.names)
	return table
}

// Lookup returns the language by case-insensitive name.
func (t *LanguageTable) Lookup(name string) (Language, bool) {
	language, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	return language, ok
}

// Names lists every configured language.
func (t *LanguageTable) Names() []string {
	return append([]string(nil), t.names...)
}

// IsCodeFile reports whether the filename carries a known source extension.
func (t *LanguageTable) IsCodeFile(filename string) bool {
	_, ok := t.LanguageForFile(filename)
	return ok
}

// LanguageForFile resolves a language from a filename extension.
func (t *LanguageTable) LanguageForFile(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", false
	}
	name, ok := t.byExtension[ext]
	return name, ok
}
