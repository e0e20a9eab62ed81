package scheduler

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    JobSpec
		wantErr error
	}{
		{"fixed step", Every(5).Seconds(), nil},
		{"step range", Every(3).To(5).Minutes(), nil},
		{"once", OnceAt("10:00"), nil},
		{"no unit", Every(1), ErrConfig},
		{"zero step", Every(0).Hours(), ErrConfig},
		{"max below min", Every(5).To(3).Days(), ErrConfig},
		{"slice tag", Every(1).Days().Tag([]string{"a"}), ErrInvalidTag},
		{"map tag", Every(1).Days().Tag("ok", map[string]int{}), ErrInvalidTag},
		{"nil tag", Every(1).Days().Tag(nil), ErrInvalidTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestJobSpec_TagFailsImmediately(t *testing.T) {
	spec := Every(1).Minutes().Tag(struct{ s []int }{})
	assert.True(t, errors.Is(spec.Err(), ErrInvalidTag))

	assert.NoError(t, Every(1).Minutes().Tag("a", 1, struct{ n int }{2}).Err())
}

func TestJobSpec_MissingUnitHasHint(t *testing.T) {
	err := Every(1).Validate()
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestJobSpec_IsAValue(t *testing.T) {
	base := Every(1).Tag("shared")
	a := base.Tag("a").Minutes()
	b := base.Tag("b").Hours()

	assert.Equal(t, []any{"shared"}, base.tags)
	assert.Equal(t, []any{"shared", "a"}, a.tags)
	assert.Equal(t, []any{"shared", "b"}, b.tags)
	assert.Equal(t, unitUnset, base.Unit())
	assert.Equal(t, Minutes, a.Unit())
	assert.Equal(t, Hours, b.Unit())
}
