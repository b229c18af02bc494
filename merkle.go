package tslh

// leafGenFunc writes the leaf at external index addrIdx into out (exactly
// N bytes), mutating addr's type-specific fields and possibly drawing
// from an L1 chain or an L2 iterator reachable through info. It is the
// callback contract of spec.md §6.3. out is a slice of genLeaves' single
// per-call leaf arena, not scratch memory: it must hold the value genLeaf
// computes for as long as the tree built from it is in use, so genLeaf
// implementations must write the escaping result directly into out
// rather than into a scratchPad buffer.
type leafGenFunc func(ctx *Context, addrIdx uint32, addr *address, info interface{}, pad *scratchPad, out []byte)

// treehashx1 builds a binary Merkle tree of 2^treeHeight leaves produced by
// genLeaf and returns its root, while recording the authentication path to
// leafIdx. It adapts the teacher's iterative lTree/genLeaf tree-building
// idiom (core.go) to an arbitrary tree height rather than a fixed L-tree
// width, computing one level of the tree array at a time rather than the
// reference implementation's O(log n)-memory streaming stack -- a
// deliberate trade of memory for an implementation whose correctness is
// easy to check by inspection, since none of this can be run to verify
// against test vectors.
func treehashx1(root, authPath []byte, ctx *Context, leafIdx, idxOffset, treeHeight uint32, genLeaf leafGenFunc, addr *address, info interface{}, pad *scratchPad) {
	leaves := genLeaves(ctx, idxOffset, treeHeight, genLeaf, addr, info, pad)
	foldLeaves(root, authPath, leaves, leafIdx, idxOffset, treeHeight, ctx, addr, pad)
}

// genLeaves runs genLeaf over the 2^treeHeight external indices
// idxOffset..idxOffset+2^treeHeight-1, in order. Split out of treehashx1
// so a cache-aware caller (hypertreeSign) can reuse a previously stored
// leaf array instead of regenerating it, while folding it up with the
// same foldLeaves logic treehashx1 itself uses.
func genLeaves(ctx *Context, idxOffset, treeHeight uint32, genLeaf leafGenFunc, addr *address, info interface{}, pad *scratchPad) [][]byte {
	levelSize := uint32(1) << treeHeight
	n := int(ctx.p.N)

	// One backing allocation for the whole leaf array rather than one
	// make() per leaf: each leaf still gets its own disjoint slice, so
	// later folding can read any of them independently, but 2^treeHeight
	// individual allocations collapse to this single arena.
	arena := make([]byte, int(levelSize)*n)
	nodes := make([][]byte, levelSize)
	addr.setTreeHeight(0)
	for idx := uint32(0); idx < levelSize; idx++ {
		addr.setTreeIndex(idxOffset + idx)
		leaf := arena[int(idx)*n : int(idx+1)*n]
		genLeaf(ctx, idxOffset+idx, addr, info, pad, leaf)
		nodes[idx] = leaf
	}
	return nodes
}

// foldLeaves combines a full 2^treeHeight leaf array up to its root,
// recording the authentication path to leafIdx. leaves is only ever read,
// never written: it may be a cached subtree array a caller intends to
// reuse for a later signature, so each level's combined nodes live in a
// fresh arena rather than overwriting leaves in place.
func foldLeaves(root, authPath []byte, leaves [][]byte, leafIdx, idxOffset, treeHeight uint32, ctx *Context, addr *address, pad *scratchPad) {
	n := int(ctx.p.N)
	nodes := leaves
	sibling := leafIdx
	both := pad.combineBuf[:2*n]

	for h := uint32(0); h < treeHeight; h++ {
		copy(authPath[int(h)*n:int(h+1)*n], nodes[sibling^1])

		levelSize := len(nodes) / 2
		arena := make([]byte, levelSize*n)
		next := make([][]byte, levelSize)
		addr.setTreeHeight(h + 1)
		for i := range next {
			addr.setTreeIndex((idxOffset >> (h + 1)) + uint32(i))
			copy(both[:n], nodes[2*i])
			copy(both[n:], nodes[2*i+1])
			combined := arena[i*n : (i+1)*n]
			thash(combined, both, ctx, addr, pad)
			next[i] = combined
		}
		nodes = next
		sibling >>= 1
	}
	copy(root, nodes[0])
}

// computeRoot is the verifier-side counterpart of treehashx1: it folds leaf
// up through authPath to reconstruct the tree's root.
func computeRoot(root, leaf []byte, leafIdx, idxOffset uint32, authPath []byte, treeHeight uint32, ctx *Context, addr *address, pad *scratchPad) {
	n := int(ctx.p.N)
	node := append([]byte(nil), leaf...)
	idx := leafIdx
	both := pad.combineBuf[:2*n]
	for h := uint32(0); h < treeHeight; h++ {
		sib := authPath[int(h)*n : int(h+1)*n]
		if idx&1 == 0 {
			copy(both[:n], node)
			copy(both[n:], sib)
		} else {
			copy(both[:n], sib)
			copy(both[n:], node)
		}
		addr.setTreeHeight(h + 1)
		addr.setTreeIndex((idxOffset >> (h + 1)) + (idx >> 1))
		thash(node, both, ctx, addr, pad)
		idx >>= 1
	}
	copy(root, node)
}
