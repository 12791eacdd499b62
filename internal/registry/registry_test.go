package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/registry"
)

func factory(name string) registry.Factory[string] {
	return func(config map[string]any) (string, error) { return name, nil }
}

func TestRegisterAndLookup(t *testing.T) {
	r := registry.New[string]()
	require.NoError(t, r.Register("time", factory("time"), registry.Metadata{Priority: 10}))

	f, err := r.Lookup("time")
	require.NoError(t, err)
	v, err := f(nil)
	require.NoError(t, err)
	assert.Equal(t, "time", v)
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	r := registry.New[string]()
	require.NoError(t, r.Register("time", factory("time"), registry.Metadata{}))

	err := r.Register("time", factory("time"), registry.Metadata{})
	var dup *registry.DuplicateNameError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, "time", dup.Name)
}

func TestLookupUnknownNameFails(t *testing.T) {
	r := registry.New[string]()
	_, err := r.Lookup("ghost")
	var nf *registry.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestBuildResolvesAndInvokes(t *testing.T) {
	r := registry.New[string]()
	require.NoError(t, r.Register("x", factory("resolved"), registry.Metadata{}))

	v, err := r.Build("x", nil)
	require.NoError(t, err)
	assert.Equal(t, "resolved", v)

	_, err = r.Build("missing", nil)
	assert.Error(t, err)
}

func TestHasReportsRegistration(t *testing.T) {
	r := registry.New[string]()
	assert.False(t, r.Has("x"))
	require.NoError(t, r.Register("x", factory("x"), registry.Metadata{}))
	assert.True(t, r.Has("x"))
}

func TestListOrdersByPriorityThenName(t *testing.T) {
	r := registry.New[string]()
	require.NoError(t, r.Register("b", factory("b"), registry.Metadata{Priority: 5}))
	require.NoError(t, r.Register("a", factory("a"), registry.Metadata{Priority: 5}))
	require.NoError(t, r.Register("c", factory("c"), registry.Metadata{Priority: 10}))

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].Name)
	assert.Equal(t, "a", list[1].Name)
	assert.Equal(t, "b", list[2].Name)
}

func TestValidateNamesReportsEachUnresolved(t *testing.T) {
	r := registry.New[string]()
	require.NoError(t, r.Register("time", factory("time"), registry.Metadata{}))

	errs := r.ValidateNames([]string{"time", "ghost1", "ghost2"})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "ghost1")
	assert.Contains(t, errs[1], "ghost2")
}
