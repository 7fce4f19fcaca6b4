package moderation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerator_PayPalNoFee(t *testing.T) {
	m := Default()
	text := "let's settle this via PayPal, no fee"

	assert.True(t, m.DetectFlaggedContent(text))
	kws := m.GetFlaggedKeywords(text)
	assert.Contains(t, kws, "PayPal")
	assert.Contains(t, kws, "no fee")
}

func TestModerator_CaseInsensitive(t *testing.T) {
	m := Default()
	assert.True(t, m.DetectFlaggedContent("add me on WHATSAPP"))
	assert.True(t, m.DetectFlaggedContent("whatsapp?"))
	assert.Equal(t, []string{"WhatsApp"}, m.GetFlaggedKeywords("wHaTsApP"))
}

func TestModerator_CleanMessage(t *testing.T) {
	m := Default()
	text := "I can pick the parcel up at the airport on Friday"
	assert.False(t, m.DetectFlaggedContent(text))
	assert.Empty(t, m.GetFlaggedKeywords(text))
	assert.Equal(t, text, m.Redact(text))
	assert.Equal(t, Verdict{}, m.Check(text))
}

func TestModerator_FlaggedKeywordsAreFromList(t *testing.T) {
	m := Default()
	list := m.Keywords()
	texts := []string{
		"send it by Western Union or MoneyGram",
		"Telegram me, my number is below, we do it outside the platform",
		"pay in cash and skip the fee, or bitcoin",
		"cashapp / Cash App / venmo",
	}
	for _, text := range texts {
		kws := m.GetFlaggedKeywords(text)
		assert.NotEmpty(t, kws, text)
		for _, kw := range kws {
			assert.Contains(t, list, kw)
		}
	}
}

func TestModerator_RedactClearsFlag(t *testing.T) {
	m := Default()
	texts := []string{
		"let's settle this via PayPal, no fee",
		"PAYPAL paypal PayPal",
		"Telegram me, we do it outside the platform",
		"pay directly via Zelle, then contact me directly",
	}
	for _, text := range texts {
		redacted := m.Redact(text)
		assert.False(t, m.DetectFlaggedContent(redacted), "%q -> %q", text, redacted)
		assert.Contains(t, redacted, RedactionMarker)
	}

	assert.Equal(t, "let's settle this via [removed], [removed]", m.Redact("let's settle this via PayPal, no fee"))
}

func TestModerator_Check(t *testing.T) {
	m := Default()
	v := m.Check("ping me on Viber")
	assert.True(t, v.Flagged)
	assert.Equal(t, []string{"Viber"}, v.Keywords)
	assert.Equal(t, "ping me on [removed]", v.Redacted)
}

func TestNewModerator(t *testing.T) {
	t.Run("Deduplicates", func(t *testing.T) {
		m, err := NewModerator([]string{"Zelle", "zelle", " ", "Venmo"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Zelle", "Venmo"}, m.Keywords())
	})

	t.Run("EmptyList", func(t *testing.T) {
		_, err := NewModerator([]string{"", "  "})
		assert.Error(t, err)
	})

	t.Run("LongestKeywordRedactedFirst", func(t *testing.T) {
		m, err := NewModerator([]string{"fee", "no fee"})
		require.NoError(t, err)
		assert.Equal(t, "deal, [removed]", m.Redact("deal, no fee"))
	})

	t.Run("RegexMetacharactersAreLiteral", func(t *testing.T) {
		m, err := NewModerator([]string{"a.b"})
		require.NoError(t, err)
		assert.False(t, m.DetectFlaggedContent("axb"))
		assert.True(t, m.DetectFlaggedContent("A.B"))
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keywords:\n  - Skype\n  - Line app\n"), 0o600))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Skype"}, m.GetFlaggedKeywords("my skype is..."))
	assert.False(t, m.DetectFlaggedContent("PayPal"))

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
