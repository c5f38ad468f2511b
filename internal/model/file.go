// Package model holds the data contracts shared between the analysis
// service client, the orchestration core and the user interfaces.
//
// Nothing here performs I/O. Wire names follow the service's JSON payloads.
package model

import (
	"path/filepath"
	"strings"
	"time"
)

// CodeFile is an uploaded source file as reported by the service.
// Immutable from the client's point of view; identity is ID only.
type CodeFile struct {
	ID            int64              `json:"id"`
	FileName      string             `json:"fileName"`
	Content       string             `json:"content,omitempty"`
	Language      string             `json:"language"`
	CreatedAt     time.Time          `json:"createdAt"`
	TrigramVector map[string]float64 `json:"trigram_vector,omitempty"`
}

// DisplayName returns the file name or a placeholder for unnamed files.
func (f CodeFile) DisplayName() string {
	if strings.TrimSpace(f.FileName) == "" {
		return "Unnamed file"
	}
	return f.FileName
}

// Language is one of the languages the service accepts on upload.
type Language string

const (
	Java       Language = "JAVA"
	Python     Language = "PYTHON"
	Cpp        Language = "CPP"
	Go         Language = "GO"
	Ruby       Language = "RUBY"
	Ada        Language = "ADA"
	JavaScript Language = "JAVASCRIPT"
	TypeScript Language = "TYPESCRIPT"
)

// Languages lists every supported language in display order.
var Languages = []Language{Java, Python, Cpp, Go, Ruby, Ada, JavaScript, TypeScript}

var extensions = map[Language][]string{
	Java:       {".java"},
	Python:     {".py"},
	Cpp:        {".cpp", ".c", ".h", ".hpp"},
	Go:         {".go"},
	Ruby:       {".rb"},
	Ada:        {".ada", ".adb", ".ads"},
	JavaScript: {".js"},
	TypeScript: {".ts"},
}

// ParseLanguage matches s case-insensitively against the supported set.
func ParseLanguage(s string) (Language, bool) {
	l := Language(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := extensions[l]
	return l, ok
}

// Extensions returns the file extensions accepted for l.
func (l Language) Extensions() []string {
	exts := extensions[l]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// Accepts reports whether fileName carries an extension valid for l.
func (l Language) Accepts(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range extensions[l] {
		if e == ext {
			return true
		}
	}
	return false
}

// DetectLanguage guesses the language from a file extension.
// Headers (.h/.hpp) resolve to CPP.
func DetectLanguage(fileName string) (Language, bool) {
	for _, l := range Languages {
		if l.Accepts(fileName) {
			return l, true
		}
	}
	return "", false
}
