package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", ToTitle(""))
	assert.Equal(t, "Rx", ToTitle("rx"))
	assert.Equal(t, "MyLib", ToTitle("myLib"))
}

func TestToPascal(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"my-lib":       "MyLib",
		"@scope/types": "ScopeTypes",
		"already":      "Already",
		"lib-v2":       "LibV2",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToPascal(in), in)
	}
}

func TestToCamel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "myProject", ToCamel("my-project"))
	assert.Equal(t, "scopeTypes", ToCamel("@scope/types"))
	assert.Equal(t, "", ToCamel("--"))
}
