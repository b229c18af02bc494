package tslh

// toBaseW decodes the first outLen base-w digits of in, most significant
// digit first, where w = 2^logW. Grounded on the teacher's wots.go
// toBaseW, generalized from a fixed w to the Params-derived WotsLogW.
func toBaseW(in []byte, outLen int, logW uint32) []uint16 {
	out := make([]uint16, outLen)
	var inIdx int
	var total byte
	var bits uint32
	for i := 0; i < outLen; i++ {
		if bits == 0 {
			total = in[inIdx]
			inIdx++
			bits = 8
		}
		bits -= logW
		out[i] = uint16((total >> bits) & byte((1<<logW)-1))
	}
	return out
}

// wotsChainLengths computes the len1 message digits and len2 checksum
// digits for a WOTS+ signature over msg (exactly n bytes).
func wotsChainLengths(p Params, msg []byte) []uint16 {
	len1 := int(p.WotsLen1())
	len2 := int(p.WotsLen2())
	logW := p.WotsLogW()

	lengths := make([]uint16, len1+len2)
	copy(lengths, toBaseW(msg, len1, logW))

	var checksum uint32
	for i := 0; i < len1; i++ {
		checksum += uint32(p.WotsW) - 1 - uint32(lengths[i])
	}
	checksum <<= (8 - (uint32(len2)*logW)%8) % 8

	checksumBytes := make([]byte, (len2*int(logW)+7)/8)
	for i := len(checksumBytes) - 1; i >= 0; i-- {
		checksumBytes[i] = byte(checksum)
		checksum >>= 8
	}
	copy(lengths[len1:], toBaseW(checksumBytes, len2, logW))
	return lengths
}

// wotsIterSeed draws the per-WOTS-key chain seeds from the Merkle-level key
// schedule slot for this hypertree layer, one triple per chain, in chain
// order -- the obtain-three-n-byte-shares-from-L2 step of spec.md §4.2.
func wotsIterSeed(ctx *Context, level uint32, keypairAddr uint32) *prfIterator {
	var seedAddr address
	seedAddr.setType(ADDR_TYPE_PRF_MERKLE)
	seedAddr.setLayer(level)
	seedAddr.setKeypairAddr(keypairAddr)

	it := &prfIterator{}
	initPrfIterator(it, int(ctx.p.WotsLen()), int(ctx.p.WotsLen())-1, ctx.merkleKey[level], ctx, seedAddr)
	return it
}

// runWotsChain opens one L1 chain from seed and drives it to the top,
// optionally publishing the intermediate value reached at stopStep (pass
// -1 to skip), per the chain protocol of spec.md §4.2.
func runWotsChain(ctx *Context, addr *address, seed [3][]byte, stopStep int, sigOut, pkOut []byte) {
	n := int(ctx.p.LaneCount())
	w := int(ctx.p.WotsW)

	addr.setHash(0)
	var cs chainState
	hashOffset := setupChain(&cs, seed, ctx, addr)

	for k := 0; k < w-1; k++ {
		if k == stopStep {
			// The running hash is still held as three shares here; publish
			// their XOR, not share 0 alone.
			shares := newShareTriple(int(ctx.p.N))
			for share := 0; share < 3; share++ {
				unpackLanesLE(shares[share], cs[share][hashOffset:hashOffset+n])
			}
			collapseShares(sigOut, shares)
		}
		keepMasked := k < w-2
		transform(&cs, hashOffset, n, keepMasked)
		incrementHashAddr(&cs, ctx, addr)
	}
	if stopStep == w-1 {
		untransform(sigOut, &cs, hashOffset, n)
	}
	if pkOut != nil {
		untransform(pkOut, &cs, hashOffset, n)
	}
}

// continueWotsChain resumes a chain from a known, already-public value (as
// found in a WOTS+ signature) for the remaining w-1-fromStep steps. Since
// the running hash is no longer secret, it is packed into share 0 only,
// with shares 1 and 2 held at zero -- I1 is satisfied trivially.
func continueWotsChain(ctx *Context, addr *address, value []byte, fromStep int, pkOut []byte) {
	n := int(ctx.p.LaneCount())
	w := int(ctx.p.WotsW)
	zero := make([]byte, ctx.p.N)
	seed := [3][]byte{value, zero, zero}

	addr.setHash(uint32(fromStep))
	var cs chainState
	hashOffset := setupChain(&cs, seed, ctx, addr)

	for k := fromStep; k < w-1; k++ {
		transform(&cs, hashOffset, n, false)
		incrementHashAddr(&cs, ctx, addr)
	}
	untransform(pkOut, &cs, hashOffset, n)
}

// wotsGenLeaf computes the WOTS+ leaf (the thash of all len chain tips) at
// keypairAddr, using the hypertree layer/tree context already set on addr,
// and writes it into out (exactly N bytes). out is expected to be a slice
// of the caller's leaf arena (see genLeaves), not scratch memory, since it
// must outlive this call; the chain-tip array pkBuf does not need to
// outlive it and is drawn from pad.combineBuf instead of a fresh make().
func wotsGenLeaf(ctx *Context, level uint32, keypairAddr uint32, addr *address, pad *scratchPad, out []byte) {
	it := wotsIterSeed(ctx, level, keypairAddr)
	n := int(ctx.p.N)
	length := int(ctx.p.WotsLen())
	pkBuf := pad.combineBuf[:length*n]

	for i := 0; i < length; i++ {
		seed := newShareTriple(n)
		it.next(seed)

		chainAddr := *addr
		chainAddr.setType(ADDR_TYPE_WOTS)
		chainAddr.setKeypairAddr(keypairAddr)
		chainAddr.setChain(uint32(i))
		runWotsChain(ctx, &chainAddr, seed, -1, nil, pkBuf[i*n:(i+1)*n])
	}

	// Start from a zero address so the tree-height/tree-index words that
	// genLeaves sets on addr do not leak into the WOTS+ public-key hash.
	var leafAddr address
	leafAddr.copyKeypairAddr(addr)
	leafAddr.setType(ADDR_TYPE_WOTSPK)
	leafAddr.setKeypairAddr(keypairAddr)
	thash(out, pkBuf, ctx, &leafAddr, pad)
}

// wotsSign produces a WOTS+ signature over msg (n bytes).
func wotsSign(sig []byte, msg []byte, ctx *Context, addr *address, level uint32, keypairAddr uint32) {
	n := int(ctx.p.N)
	lengths := wotsChainLengths(ctx.p, msg)
	it := wotsIterSeed(ctx, level, keypairAddr)

	for i, digit := range lengths {
		seed := newShareTriple(n)
		it.next(seed)

		chainAddr := *addr
		chainAddr.setType(ADDR_TYPE_WOTS)
		chainAddr.setKeypairAddr(keypairAddr)
		chainAddr.setChain(uint32(i))
		runWotsChain(ctx, &chainAddr, seed, int(digit), sig[i*n:(i+1)*n], nil)
	}
}

// wotsPkFromSig reconstructs the WOTS+ leaf a signature over msg implies,
// for verification.
func wotsPkFromSig(leaf []byte, sig []byte, msg []byte, ctx *Context, addr *address, keypairAddr uint32, pad *scratchPad) {
	n := int(ctx.p.N)
	length := int(ctx.p.WotsLen())
	lengths := wotsChainLengths(ctx.p, msg)
	pkBuf := pad.combineBuf[:length*n]

	for i, digit := range lengths {
		chainAddr := *addr
		chainAddr.setType(ADDR_TYPE_WOTS)
		chainAddr.setKeypairAddr(keypairAddr)
		chainAddr.setChain(uint32(i))
		continueWotsChain(ctx, &chainAddr, sig[i*n:(i+1)*n], int(digit), pkBuf[i*n:(i+1)*n])
	}

	leafAddr := *addr
	leafAddr.setType(ADDR_TYPE_WOTSPK)
	leafAddr.setKeypairAddr(keypairAddr)
	thash(leaf, pkBuf, ctx, &leafAddr, pad)
}
