package engine

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestUUIDv7Generator_Format(t *testing.T) {
	gen := UUIDv7Generator{}
	id := gen.Generate()
	assert.Len(t, id, 36)
	assert.Regexp(t, uuidPattern, id)
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := map[string]bool{}
	for range 1000 {
		id := gen.Generate()
		assert.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
}

func TestFixedGenerator_Order(t *testing.T) {
	gen := NewFixedGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.PanicsWithValue(t, "FixedGenerator: all ids exhausted", func() { gen.Generate() })
}

func TestFixedGenerator_ThreadSafe(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}
	gen := NewFixedGenerator(ids...)

	var wg sync.WaitGroup
	out := make(chan string, len(ids))
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				out <- gen.Generate()
			}
		}()
	}
	wg.Wait()
	close(out)

	seen := map[string]bool{}
	for id := range out {
		seen[id] = true
	}
	assert.Len(t, seen, len(ids))
}
