package tslh

// prfIterator is the PRF iterator It of spec.md §4.3: a stateful walker
// over a 4-ary tree of 3-share values that emits external leaves in
// strictly increasing external-index order, sharing work along the tree
// path rather than recomputing every ancestor of every leaf from the root.
type prfIterator struct {
	ctx  *Context
	addr address

	minNode, stopNode int
	curNode           int // -1 once exhausted

	node      []int
	count     []int
	nodeValue [][3][]byte
}

func newShareTriple(n int) [3][]byte {
	return [3][]byte{make([]byte, n), make([]byte, n), make([]byte, n)}
}

// prfChildIndex returns v's 0-based position among its parent's four
// children.
func prfChildIndex(v int) int {
	return (v - 1) % 4
}

// prfStep evaluates one PRF hop from parentValue to the node numbered v,
// per I5: PRF_hash(parent_value, addr_with_prf_index=v).
func prfStep(ctx *Context, addr *address, v int, parentValue [3][]byte) [3][]byte {
	addr.setPrfIndex(uint32(v))
	out := newShareTriple(int(ctx.p.N))
	prfHashFunction(out, parentValue, ctx, addr)
	return out
}

// rootToNodePath returns the chain of node numbers from v's depth-1
// ancestor (one of the root's children) down to and including v (v must
// be > 0).
func rootToNodePath(v int) []int {
	var rev []int
	for v > 0 {
		rev = append(rev, v)
		v = (v - 1) / 4
	}
	path := make([]int, len(rev))
	for i, x := range rev {
		path[len(rev)-1-i] = x
	}
	return path
}

// evalSinglePrfLeaf traces the root-to-leaf PRF path directly, without
// maintaining the sibling scratch a full iteration would. It is the L3
// helper of spec.md §4.4 and is also used by FORS signing to extract the
// one secret leaf value a signature publishes outright.
func evalSinglePrfLeaf(out [3][]byte, root [3][]byte, i, nLeaves uint32, ctx *Context, addr *address) {
	minNode := int((nLeaves + 1) / 3)
	v := int(i) + minNode
	path := rootToNodePath(v)

	value := root
	for _, node := range path {
		value = prfStep(ctx, addr, node, value)
	}
	for share := 0; share < 3; share++ {
		copy(out[share], value[share])
	}
}

// initPrfIterator sets up it to emit external indices 0..stop, inclusive,
// out of a tree with nLeaves external leaves rooted at seed.
func initPrfIterator(it *prfIterator, nLeaves, stop int, seed [3][]byte, ctx *Context, addr address) {
	it.ctx = ctx
	it.addr = addr
	it.minNode = (nLeaves + 1) / 3
	it.stopNode = stop + it.minNode
	it.curNode = it.minNode

	path := rootToNodePath(it.minNode)
	it.node = make([]int, len(path)+1)
	it.count = make([]int, len(path)+1)
	it.nodeValue = make([][3][]byte, len(path)+1)

	it.node[0] = 0
	it.count[0] = 0
	it.nodeValue[0] = seed

	value := seed
	for depth, v := range path {
		value = prfStep(it.ctx, &it.addr, v, value)
		it.node[depth+1] = v
		it.count[depth+1] = prfChildIndex(v)
		it.nodeValue[depth+1] = value
	}
}

// next emits the share triple at the deepest stored level into out and
// advances the walker. It returns the external index that was just
// emitted and true, or (0, false) once the iterator is exhausted.
func (it *prfIterator) next(out [3][]byte) (int, bool) {
	if it.curNode == -1 {
		return 0, false
	}
	ret := it.curNode - it.minNode
	last := len(it.nodeValue) - 1
	for share := 0; share < 3; share++ {
		copy(out[share], it.nodeValue[last][share])
	}

	if it.curNode == it.stopNode {
		it.curNode = -1
		return ret, true
	}

	i := len(it.count) - 1
	for i >= 0 && it.count[i] >= 3 {
		i--
	}
	// i == 0 always satisfies count[0] == 0 < 3, so the scan never runs
	// past the root; when it lands on i == 0 the whole path below the
	// root has been exhausted and a new depth must be appended.
	if i > 0 {
		it.count[i]++
		it.node[i]++
		it.nodeValue[i] = prfStep(it.ctx, &it.addr, it.node[i], it.nodeValue[i-1])
	} else {
		// The whole path below the root has been exhausted: grow one
		// level deeper and rebuild every non-root depth from scratch,
		// restarting at the leftmost child chain.
		it.node = append(it.node, 0)
		it.count = append(it.count, 0)
		it.nodeValue = append(it.nodeValue, [3][]byte{})
	}
	for j := i + 1; j < len(it.node); j++ {
		it.node[j] = 4*it.node[j-1] + 1
		it.count[j] = 0
		it.nodeValue[j] = prfStep(it.ctx, &it.addr, it.node[j], it.nodeValue[j-1])
	}

	it.curNode++
	return ret, true
}
