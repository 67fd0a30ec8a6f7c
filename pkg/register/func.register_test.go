package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testKey struct{}

func TestApplyInOrder(t *testing.T) {
	RegisterFunc[*[]string](testKey{}, func(s *[]string) { *s = append(*s, "a") })
	RegisterFunc[*[]string](testKey{}, func(s *[]string) { *s = append(*s, "b") })
	RegisterFunc[int](testKey{}, func(int) { t.Fatal("wrong type must be skipped") })

	var got []string
	Apply(testKey{}, &got)
	assert.Equal(t, []string{"a", "b"}, got)
}
