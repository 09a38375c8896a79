// Package palette picks well-spread pen colors for participants.
package palette

import (
	"hash/fnv"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

const goldenRatio = 0.618033988749895

// Generator: hands out pen colors along the golden-ratio hue sequence
type Generator struct {
	counter int
	mu      sync.Mutex
}

func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next color in the sequence as #rrggbb
func (g *Generator) Next() string {
	g.mu.Lock()
	n := g.counter
	g.counter++
	g.mu.Unlock()

	return hueAt(float64(n) * goldenRatio)
}

// ForName returns a stable color for a name
func ForName(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return hueAt(float64(h.Sum32()) * goldenRatio)
}

// hueAt keeps the fractional part of turns as the hue. Lightness stays low
// enough to read on a white canvas.
func hueAt(turns float64) string {
	hue := turns - float64(int(turns))
	return colorful.Hsl(hue*360, 0.85, 0.45).Hex()
}
