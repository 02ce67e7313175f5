package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSafeName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"rent_report", "A-1", "x"} {
		require.True(t, IsSafeName(name), name)
	}
	for _, name := range []string{"", "bad name!", "../etc", "a.json", "日本"} {
		require.False(t, IsSafeName(name), name)
	}
}

func TestValidatorUsesJSONNames(t *testing.T) {
	t.Parallel()

	type component struct {
		Name string `json:"name" validate:"required,safename"`
	}
	err := Validator().Struct(component{Name: "bad name!"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "'name'")
	require.Contains(t, err.Error(), "safename")

	require.NoError(t, Validator().Struct(component{Name: "ok_name"}))
}
