package tslh

// forsGenLeafInfo carries the shared PRF iterator into treehashx1's
// leafGenFunc callback, mirroring original_source/ref/fors.c's
// fors_gen_leaf_info.
type forsGenLeafInfo struct {
	iter *prfIterator
}

// forsGenLeaf draws the next secret value off the shared iterator and runs
// it through the unmasked F-transform to produce one FORS tree leaf,
// written into out (exactly N bytes, a slice of the caller's leaf arena).
// The iterator is shared across all FORSTrees trees so that every one of
// the FORSTrees*2^FORSHeight secret values is produced by a single walk
// over the PRF tree rooted at ctx.forsSeed, in increasing external-index
// order.
func forsGenLeaf(ctx *Context, addrIdx uint32, addr *address, info interface{}, pad *scratchPad, out []byte) {
	fi := info.(*forsGenLeafInfo)
	n := int(ctx.p.N)

	seed := newShareTriple(n)
	fi.iter.next(seed)

	leafAddr := *addr
	leafAddr.setType(ADDR_TYPE_FORSTREE)
	leafAddr.setTreeIndex(addrIdx)

	var cs chainState
	hashOffset := setupChain(&cs, seed, ctx, &leafAddr)
	transform(&cs, hashOffset, n, false)
	untransform(out, &cs, hashOffset, n)
}

// forsSkToLeaf re-derives the leaf implied by a FORS signature's revealed
// secret value, for verification. The value is already public, so it runs
// through the same unmasked F-transform with shares 1 and 2 held at zero.
func forsSkToLeaf(leaf []byte, sk []byte, ctx *Context, addr *address) {
	n := int(ctx.p.N)
	zero := make([]byte, n)
	seed := [3][]byte{sk, zero, zero}

	var cs chainState
	hashOffset := setupChain(&cs, seed, ctx, addr)
	transform(&cs, hashOffset, n, false)
	untransform(leaf, &cs, hashOffset, n)
}

// forsSign produces a FORS signature over the FORSTrees indices extracted
// from the digest, plus the FORS public key those indices and secret
// values imply. addr must already carry the hypertree keypair address
// (layer, tree, keypair index) this FORS key belongs to.
func forsSign(sig, pk []byte, indices []uint32, ctx *Context, addr *address, pad *scratchPad) {
	p := ctx.p
	n := int(p.N)
	leavesPerTree := uint32(1) << p.FORSHeight
	totalLeaves := int(p.FORSTrees) * int(leavesPerTree)

	topAddr := *addr
	topAddr.setType(ADDR_TYPE_PRF_FORS)
	it := &prfIterator{}
	initPrfIterator(it, totalLeaves, totalLeaves-1, ctx.forsSeed, ctx, topAddr)

	roots := make([]byte, int(p.FORSTrees)*n)
	sigOff := 0

	for i := uint32(0); i < p.FORSTrees; i++ {
		idxOffset := i * leavesPerTree

		skAddr := *addr
		skAddr.setType(ADDR_TYPE_FORSPRF)
		skAddr.setTreeHeight(0)
		skAddr.setTreeIndex(i)

		sk := newShareTriple(n)
		evalSinglePrfLeaf(sk, ctx.forsSeed, indices[i]+i*leavesPerTree, uint32(totalLeaves), ctx, &topAddr)
		collapseShares(sig[sigOff:sigOff+n], sk)
		sigOff += n

		info := &forsGenLeafInfo{iter: it}
		treeAddr := *addr
		treeAddr.setType(ADDR_TYPE_FORSTREE)
		treeAddr.setTreeIndex(indices[i] + idxOffset)

		treehashx1(roots[int(i)*n:int(i+1)*n], sig[sigOff:sigOff+int(p.FORSHeight)*n], ctx,
			indices[i], idxOffset, p.FORSHeight, forsGenLeaf, &treeAddr, info, pad)
		sigOff += int(p.FORSHeight) * n
	}

	pkAddr := *addr
	pkAddr.setType(ADDR_TYPE_FORSPK)
	thash(pk, roots, ctx, &pkAddr, pad)
}

// forsPkFromSig reconstructs the FORS public key a signature over the
// given digest-derived indices implies.
func forsPkFromSig(pk []byte, sig []byte, indices []uint32, ctx *Context, addr *address, pad *scratchPad) {
	p := ctx.p
	n := int(p.N)
	leavesPerTree := uint32(1) << p.FORSHeight
	roots := make([]byte, int(p.FORSTrees)*n)
	sigOff := 0

	for i := uint32(0); i < p.FORSTrees; i++ {
		idxOffset := i * leavesPerTree

		treeAddr := *addr
		treeAddr.setType(ADDR_TYPE_FORSTREE)
		treeAddr.setTreeHeight(0)
		treeAddr.setTreeIndex(indices[i] + idxOffset)

		leaf := make([]byte, n)
		forsSkToLeaf(leaf, sig[sigOff:sigOff+n], ctx, &treeAddr)
		sigOff += n

		computeRoot(roots[int(i)*n:int(i+1)*n], leaf, indices[i], idxOffset,
			sig[sigOff:sigOff+int(p.FORSHeight)*n], p.FORSHeight, ctx, &treeAddr, pad)
		sigOff += int(p.FORSHeight) * n
	}

	pkAddr := *addr
	pkAddr.setType(ADDR_TYPE_FORSPK)
	thash(pk, roots, ctx, &pkAddr, pad)
}
