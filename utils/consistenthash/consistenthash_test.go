package consistenthash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNew_Defaults(t *testing.T) {
	r := New(0, nil, "a", "b", "a", "")
	assert.Equal(t, 64, r.replicas)
	assert.Equal(t, []string{"a", "b"}, r.nodes, "duplicates and empty names are skipped")
	assert.Len(t, r.points, 128)
}

func TestEmptyRing(t *testing.T) {
	r := New(10, nil)
	assert.Equal(t, -1, r.Locate("guild"))
}

func TestLocate_Wraps(t *testing.T) {
	// identity-ish hash: node positions are fixed, keys land where we say
	pos := map[string]uint32{"a#0": 10, "b#0": 20, "k5": 5, "k15": 15, "k25": 25}
	r := New(1, func(d []byte) uint32 { return pos[string(d)] }, "a", "b")

	assert.Equal(t, 0, r.Locate("k5"))
	assert.Equal(t, 1, r.Locate("k15"))
	assert.Equal(t, 0, r.Locate("k25"), "past the last point wraps to the first")
}

func TestCollisionKeepsFirstNode(t *testing.T) {
	r := New(3, func([]byte) uint32 { return 7 }, "a", "b")
	assert.Len(t, r.points, 1)
	assert.Equal(t, 0, r.Locate("anything"))
}

func TestProperty_StableAndSpread(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(rt, "nodes")
		nodes := make([]string, n)
		for i := range nodes {
			nodes[i] = fmt.Sprintf("worker-%d", i)
		}
		r := New(rapid.IntRange(1, 100).Draw(rt, "replicas"), nil, nodes...)
		again := New(r.replicas, nil, nodes...)

		key := rapid.String().Draw(rt, "key")
		i := r.Locate(key)
		if i < 0 || i >= n {
			rt.Fatalf("index %d out of range for %d nodes", i, n)
		}
		if again.Locate(key) != i {
			rt.Fatalf("same nodes placed %q differently", key)
		}
		if r.Locate(key) != i {
			rt.Fatalf("lookup of %q is not deterministic", key)
		}
	})
}
