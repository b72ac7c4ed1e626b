// Package language detects the language of a shopper's message and holds the per-language
// templates the chat uses to answer in kind.
//
// The set of languages is data: a YAML table embedded in the binary, replaceable at startup.
package language

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Tag identifies a language in the table.
type Tag string

// Tags shipped in the embedded table.
const (
	English Tag = "english"
	Pidgin  Tag = "pidgin"
	Yoruba  Tag = "yoruba"
	Igbo    Tag = "igbo"
	Hausa   Tag = "hausa"
)

//go:embed languages.yaml
var embedded []byte

// Entry is one language: how to recognise it and what to say in it.
type Entry struct {
	Tag         Tag      `yaml:"tag"`
	Markers     []string `yaml:"markers"`
	Greeting    string   `yaml:"greeting"`
	Instruction string   `yaml:"instruction"`
	Fallback    string   `yaml:"fallback"`

	phrases [][]string
}

type tableFile struct {
	Default   Tag     `yaml:"default"`
	Languages []Entry `yaml:"languages"`
}

// Table is an ordered, immutable set of languages. It is safe for concurrent use.
type Table struct {
	def     Tag
	entries []Entry
	byTag   map[Tag]*Entry
}

// Default returns the table embedded in the binary.
func Default() *Table {
	t, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("language: embedded table: %v", err))
	}
	return t
}

// Load returns the table at path, or the embedded table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and parses a language table from disk.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("language: read %s: %w", path, err)
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("language: %s: %w", path, err)
	}
	return t, nil
}

// Parse builds a table from YAML. The default language must be present with all three
// templates; other entries may leave templates empty to inherit the default's.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if f.Default == "" {
		return nil, fmt.Errorf("no default language")
	}

	t := &Table{def: f.Default, byTag: make(map[Tag]*Entry, len(f.Languages))}
	t.entries = make([]Entry, 0, len(f.Languages))
	for _, e := range f.Languages {
		if e.Tag == "" {
			return nil, fmt.Errorf("language entry without a tag")
		}
		if _, dup := t.byTag[e.Tag]; dup {
			return nil, fmt.Errorf("duplicate language %q", e.Tag)
		}
		for _, m := range e.Markers {
			if words := tokenize(m); len(words) > 0 {
				e.phrases = append(e.phrases, words)
			}
		}
		t.entries = append(t.entries, e)
		t.byTag[e.Tag] = &t.entries[len(t.entries)-1]
	}

	d, ok := t.byTag[f.Default]
	if !ok {
		return nil, fmt.Errorf("default language %q has no entry", f.Default)
	}
	if d.Greeting == "" || d.Instruction == "" || d.Fallback == "" {
		return nil, fmt.Errorf("default language %q needs greeting, instruction and fallback", f.Default)
	}
	return t, nil
}

// Tags lists the languages in detection order.
func (t *Table) Tags() []Tag {
	out := make([]Tag, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Tag
	}
	return out
}

// DefaultTag is the language assumed when nothing matches.
func (t *Table) DefaultTag() Tag { return t.def }

// Detect returns the first language with a marker in message, or the default.
func (t *Table) Detect(message string) Tag {
	words := tokenize(message)
	if len(words) == 0 {
		return t.def
	}
	for _, e := range t.entries {
		for _, p := range e.phrases {
			if containsPhrase(words, p) {
				return e.Tag
			}
		}
	}
	return t.def
}

// Greeting welcomes the shopper to business.
func (t *Table) Greeting(tag Tag, business string) string {
	tmpl := t.lookup(tag, func(e *Entry) string { return e.Greeting })
	return strings.ReplaceAll(tmpl, "{business}", business)
}

// Instruction is the prompt line telling the model which language to answer in.
func (t *Table) Instruction(tag Tag) string {
	return t.lookup(tag, func(e *Entry) string { return e.Instruction })
}

// Fallback is the static answer used when no generated reply is available.
func (t *Table) Fallback(tag Tag, whatsapp string) string {
	text := t.lookup(tag, func(e *Entry) string { return e.Fallback })
	if whatsapp != "" {
		text += "\n\n📱 WhatsApp: " + whatsapp
	}
	return text
}

func (t *Table) lookup(tag Tag, field func(*Entry) string) string {
	if e, ok := t.byTag[tag]; ok {
		if s := field(e); s != "" {
			return s
		}
	}
	return field(t.byTag[t.def])
}

// tokenize lower-cases s and splits it into words of letters, digits and apostrophes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && !unicode.Is(unicode.Mn, r)
	})
}

func containsPhrase(words, phrase []string) bool {
outer:
	for i := 0; i+len(phrase) <= len(words); i++ {
		for j, w := range phrase {
			if words[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
