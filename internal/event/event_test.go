package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryOrderAndRemoval(t *testing.T) {
	var r Registry[func(int)]
	var got []string

	var removeB func()
	r.Add(func(int) {
		got = append(got, "a")
		removeB()
	})
	removeB = r.Add(func(int) { got = append(got, "b") })
	r.Add(func(int) { got = append(got, "c") })

	r.Each(func(f func(int)) { f(1) })
	assert.Equal(t, []string{"a", "c"}, got)
	assert.Equal(t, 2, r.Len())

	removeB()
	assert.Equal(t, 2, r.Len())
}

func TestRegistryAddDuringEmit(t *testing.T) {
	var r Registry[func()]
	calls := 0
	r.Add(func() {
		calls++
		r.Add(func() { calls += 10 })
	})
	r.Each(func(f func()) { f() })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, r.Len())
}
