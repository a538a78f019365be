package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "en", Normalize("en"))
	assert.Equal(t, "es", Normalize("es"))
	assert.Equal(t, "en", Normalize(""))
	assert.Equal(t, "en", Normalize("fr"))
}

func TestTranslate(t *testing.T) {
	en := New("en")
	es := New("es")

	assert.Equal(t, "Simulation updated", en.T(SimUpdated))
	assert.Equal(t, "Simulación actualizada", es.T(SimUpdated))
	assert.Equal(t, "Compiling... files=2 mode=generic", en.T(Compiling, 2, "generic"))
	assert.Equal(t, "Compilation error:\nfoo.v:10: syntax error", en.T(CompileError, "foo.v:10: syntax error"))
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	tr := New("de")
	assert.Equal(t, "en", tr.Lang())
	assert.Equal(t, "GTKWave closed.", tr.T(ViewerClosed))
}

func TestEveryKeyHasBothLanguages(t *testing.T) {
	for key, text := range entries {
		assert.NotEmpty(t, text[0], "english text for %s", key)
		assert.NotEmpty(t, text[1], "spanish text for %s", key)
	}
}
