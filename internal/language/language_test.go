package language

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	table := Default()

	tests := []struct {
		message string
		want    Tag
	}{
		{"Abeg how much be this bag?", Pidgin},
		{"How far, wetin dey?", Pidgin},
		{"Bawo ni", Yoruba},
		{"Kedu, biko I need shoes", Igbo},
		{"Sannu, ina son takalma", Hausa},
		{"Do you have red sneakers?", English},
		{"How much is the iPhone?", English},
		{"I want this one", English},
		{"how farther can you deliver", English},
		{"asdkjasd", English},
		{"", English},
		{"!!!", English},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Detect(tt.message))
		})
	}
}

func TestDetect_TableOrderWins(t *testing.T) {
	// "abeg" is pidgin and "ni" is yoruba; pidgin comes first.
	assert.Equal(t, Pidgin, Default().Detect("abeg ni"))
}

func TestTemplates(t *testing.T) {
	table := Default()

	assert.Equal(t, "👋 Welcome to Acme! How can I help you today?", table.Greeting(English, "Acme"))
	assert.Contains(t, table.Greeting(Yoruba, "Acme"), "E kaabo si Acme")
	assert.Equal(t, table.Greeting(English, "Acme"), table.Greeting("klingon", "Acme"))

	assert.Equal(t, "Respond in clear, simple English.", table.Instruction(English))
	assert.Contains(t, table.Instruction(Pidgin), "Pidgin")

	assert.NotContains(t, table.Fallback(Igbo, ""), "WhatsApp")
	assert.True(t, strings.HasSuffix(table.Fallback(English, "+2348012345678"), "\n\n📱 WhatsApp: +2348012345678"))
	assert.True(t, strings.HasPrefix(table.Fallback(Hausa, ""), "Zan iya"))
}

func TestDefaultTable(t *testing.T) {
	table := Default()
	assert.Equal(t, English, table.DefaultTag())
	assert.Equal(t, []Tag{Pidgin, Yoruba, Igbo, Hausa, English}, table.Tags())
}

const frenchTable = `
default: english
languages:
  - tag: french
    markers: [bonjour, s'il vous plait]
    greeting: "Bienvenue chez {business} !"
  - tag: english
    greeting: "Welcome to {business}!"
    instruction: "Respond in English."
    fallback: "I can help with prices."
`

func TestParse_AddLanguageWithoutCode(t *testing.T) {
	table, err := Parse([]byte(frenchTable))
	require.NoError(t, err)

	assert.Equal(t, Tag("french"), table.Detect("Bonjour, avez-vous des chaussures?"))
	assert.Equal(t, Tag("french"), table.Detect("Une robe s'il vous plait"))
	assert.Equal(t, English, table.Detect("hello"))

	assert.Equal(t, "Bienvenue chez Acme !", table.Greeting("french", "Acme"))
	assert.Equal(t, "I can help with prices.", table.Fallback("french", ""), "missing templates inherit the default")
	assert.Equal(t, "Respond in English.", table.Instruction("french"))
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"no default":      "languages:\n  - tag: english\n",
		"missing default": "default: english\nlanguages:\n  - tag: french\n    greeting: a\n    instruction: b\n    fallback: c\n",
		"duplicate":       "default: english\nlanguages:\n  - tag: english\n  - tag: english\n",
		"untagged":        "default: english\nlanguages:\n  - markers: [x]\n",
		"incomplete":      "default: english\nlanguages:\n  - tag: english\n    greeting: hi\n",
		"malformed":       "default: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	table, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, English, table.DefaultTag())

	path := filepath.Join(t.TempDir(), "languages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(frenchTable), 0o600))
	table, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Tag{"french", English}, table.Tags())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
