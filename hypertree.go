package tslh

import "crypto/subtle"

// hypertreeGenLeafInfo carries the hypertree level a treehashx1 call is
// building leaves for -- the WOTS+ keypair address varies by leaf index,
// but the layer is fixed for the whole tree.
type hypertreeGenLeafInfo struct {
	level uint32
}

// hypertreeGenLeaf produces the WOTS+ leaf at keypair index addrIdx within
// the subtree treehashx1 is building, reusing wotsGenLeaf under the
// leafGenFunc contract of merkle.go.
func hypertreeGenLeaf(ctx *Context, addrIdx uint32, addr *address, info interface{}, pad *scratchPad, out []byte) {
	level := info.(*hypertreeGenLeafInfo).level
	wotsGenLeaf(ctx, level, addrIdx, addr, pad, out)
}

// hypertreeSign is the outer, non-CORE protocol of spec.md §4.8: for a
// fixed (tree, idxLeaf), it produces D WOTS+ signatures plus Merkle
// authentication paths, one per hypertree layer, each signing the
// previous layer's root (layer 0 signs root, the caller's FORS public
// key). It returns the hypertree root the top layer's signature implies.
// ctx.merkleKey must already hold the key schedule deriveKeySchedule
// computes for this (tree, idxLeaf). cache may be nil; when given, it is
// consulted and populated with each layer's leaf array, so that repeated
// signatures landing in the same (layer, tree) subtree -- a near
// certainty for the upper layers, where the tree count shrinks
// exponentially -- skip WOTS+ leaf regeneration entirely.
func hypertreeSign(sig []byte, ctx *Context, root []byte, tree uint64, idxLeaf uint32, cache SubtreeCache, pad *scratchPad) []byte {
	p := ctx.p
	n := int(p.N)
	wotsBytes := int(p.WotsLen()) * n
	authBytes := int(p.TreeHeight) * n

	msg := append([]byte(nil), root...)
	off := 0
	for level := uint32(0); level < p.D; level++ {
		var addr address
		addr.setType(ADDR_TYPE_WOTS)
		addr.setLayer(level)
		nodeTree := hypertreeNodeTree(p, tree, level)
		addr.setTree(nodeTree)
		leaf := hypertreeLeafIndex(p, tree, idxLeaf, level)

		wotsSign(sig[off:off+wotsBytes], msg, ctx, &addr, level, leaf)
		off += wotsBytes

		addr.setType(ADDR_TYPE_TREE)
		key := SubtreeKey{Layer: level, Tree: nodeTree}
		var leaves [][]byte
		if cache != nil {
			if cached, ok := cache.Get(key); ok {
				leaves = cached
			} else {
				log.Logf("subtree cache miss for layer %d tree %d --- regenerating leaves", level, nodeTree)
			}
		}
		if leaves == nil {
			info := &hypertreeGenLeafInfo{level: level}
			leaves = genLeaves(ctx, 0, p.TreeHeight, hypertreeGenLeaf, &addr, info, pad)
			if cache != nil {
				_ = cache.Put(key, leaves)
			}
		}

		newRoot := make([]byte, n)
		foldLeaves(newRoot, sig[off:off+authBytes], leaves, leaf, 0, p.TreeHeight, ctx, &addr, pad)
		off += authBytes

		msg = newRoot
	}
	return msg
}

// hypertreeVerify reconstructs the hypertree root a signature over root (a
// FORS public key) implies for (tree, idxLeaf), and reports whether it
// matches pkRoot in constant time, grounded on the teacher's
// `PublicKey.VerifyFrom` layer loop.
func hypertreeVerify(sig []byte, ctx *Context, root []byte, tree uint64, idxLeaf uint32, pkRoot []byte, pad *scratchPad) bool {
	p := ctx.p
	n := int(p.N)
	wotsBytes := int(p.WotsLen()) * n
	authBytes := int(p.TreeHeight) * n

	msg := append([]byte(nil), root...)
	off := 0
	for level := uint32(0); level < p.D; level++ {
		var addr address
		addr.setType(ADDR_TYPE_WOTS)
		addr.setLayer(level)
		addr.setTree(hypertreeNodeTree(p, tree, level))
		leaf := hypertreeLeafIndex(p, tree, idxLeaf, level)

		wotsLeaf := make([]byte, n)
		wotsPkFromSig(wotsLeaf, sig[off:off+wotsBytes], msg, ctx, &addr, leaf, pad)
		off += wotsBytes

		newRoot := make([]byte, n)
		addr.setType(ADDR_TYPE_TREE)
		computeRoot(newRoot, wotsLeaf, leaf, 0, sig[off:off+authBytes], p.TreeHeight, ctx, &addr, pad)
		off += authBytes

		msg = newRoot
	}
	return subtle.ConstantTimeCompare(msg, pkRoot) == 1
}
