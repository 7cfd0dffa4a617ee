package consistenthash

import (
	"slices"
	"sort"
	"strconv"

	"github.com/twmb/murmur3"
)

// Hash maps a key onto the ring.
type Hash func(data []byte) uint32

// Ring 一致性哈希环，构造后只读，可并发使用
type Ring struct {
	hash     Hash
	replicas int
	points   []uint32       // 排序后的虚拟节点位置
	owners   map[uint32]int // 虚拟节点位置 -> 节点下标
	nodes    []string
}

// New 创建哈希环
// replicas <= 0 时每个节点使用 64 个虚拟节点；fn 为 nil 时使用 murmur3
func New(replicas int, fn Hash, nodes ...string) *Ring {
	if replicas <= 0 {
		replicas = 64
	}
	if fn == nil {
		fn = murmur3.Sum32
	}
	r := &Ring{
		hash:     fn,
		replicas: replicas,
		owners:   make(map[uint32]int),
	}
	for _, node := range nodes {
		if node == "" || slices.Contains(r.nodes, node) {
			continue
		}
		r.nodes = append(r.nodes, node)
		idx := len(r.nodes) - 1
		for i := range replicas {
			p := r.hash([]byte(node + "#" + strconv.Itoa(i)))
			// 位置冲突时先加入的节点胜出
			if _, taken := r.owners[p]; taken {
				continue
			}
			r.owners[p] = idx
			r.points = append(r.points, p)
		}
	}
	slices.Sort(r.points)
	return r
}

// Locate returns the index, in construction order, of the node owning key,
// or -1 on an empty ring.
func (r *Ring) Locate(key string) int {
	if len(r.points) == 0 {
		return -1
	}
	h := r.hash([]byte(key))
	i := sort.Search(len(r.points), func(i int) bool { return r.points[i] >= h })
	if i == len(r.points) {
		i = 0
	}
	return r.owners[r.points[i]]
}
