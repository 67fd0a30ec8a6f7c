package safe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRecovers(t *testing.T) {
	assert.NotPanics(t, func() {
		Run(func() { panic("boom") })
	})
}

func TestGo(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	done := false
	Go("test", func() {
		defer wg.Done()
		done = true
	})
	wg.Wait()
	assert.True(t, done)
}
