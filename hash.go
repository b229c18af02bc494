package tslh

import (
	"encoding/binary"

	"github.com/templexxx/xor"
)

// prfHashFunction is the external collaborator named in spec.md §6.2: it
// consumes three n-byte input shares plus addr and ctx.pubSeed and
// produces three n-byte output shares, using the same masking discipline
// as L0. It is the single-F-call building block L2 and L3 use to walk the
// PRF tree: a setup identical to setupChain's, but invoked once with
// keepMasked=true and no Winternitz looping.
func prfHashFunction(out, in [3][]byte, ctx *Context, addr *address) {
	var cs chainState
	hashOffset := setupChain(&cs, in, ctx, addr)
	n := int(ctx.p.LaneCount())
	transform(&cs, hashOffset, n, true)
	untransform(out[0], &cs, hashOffset, n)
	unpackLanesLE(out[1], cs[1][hashOffset:hashOffset+n])
	unpackLanesLE(out[2], cs[2][hashOffset:hashOffset+n])
}

// collapseShares XORs the three shares of a triple into out, the spot
// where a secret-derived value crosses from masked shares to a single
// public byte string (a FORS signature's revealed secret leaf value, or a
// WOTS+ signature's intermediate chain value).
func collapseShares(out []byte, shares [3][]byte) {
	xor.BytesSameLen(out, shares[0], shares[1])
	xor.BytesSameLen(out, out, shares[2])
}

// thash is the tweakable hash of spec.md §6.3: a domain-separated absorb of
// ctx.pubSeed, addr and in, squeezed to N bytes. It underlies WOTS+'s
// chain-tip combination and FORS's root/public-key combination; both sit
// just above the CORE and are not masked, since by the time they run their
// inputs are no longer secret (spec.md §4.2's chain protocol always
// serializes into the public signature or public key before calling up
// into thash).
func thash(out, in []byte, ctx *Context, addr *address, pad *scratchPad) {
	sh := pad.shake
	sh.Reset()
	sh.Write(ctx.pubSeed)
	var addrBuf [32]byte
	addr.writeInto(addrBuf[:])
	sh.Write(addrBuf[:])
	sh.Write(in)
	sh.Read(out)
}

// genMessageRandom derives the per-signature randomizer R from the secret
// PRF seed, an optional caller-supplied randomizer (or ctx.pubSeed when
// deterministic signing is requested), and the message.
func genMessageRandom(out []byte, skPrf, optRand, msg []byte, pad *scratchPad) {
	sh := pad.shake
	sh.Reset()
	sh.Write(skPrf)
	sh.Write(optRand)
	sh.Write(msg)
	sh.Read(out)
}

// hashMessage digests (R, pkSeed, pkRoot, msg) down to the FORS leaf
// indices and the hypertree (tree, leafIdx) locator for this signature, in
// the manner of the SLH-DSA H_msg function.
func hashMessage(ctx *Context, r, pkSeed, pkRoot, msg []byte, pad *scratchPad) (forsIndices []uint32, tree uint64, leafIdx uint32) {
	p := ctx.p
	md := (p.FORSHeight*p.FORSTrees + 7) / 8
	treeBytes := (p.FullHeight() - p.TreeHeight + 7) / 8
	leafBytes := (p.TreeHeight + 7) / 8
	digest := make([]byte, md+treeBytes+leafBytes)

	sh := pad.shake
	sh.Reset()
	sh.Write(r)
	sh.Write(pkSeed)
	sh.Write(pkRoot)
	sh.Write(msg)
	sh.Read(digest)

	forsIndices = messageToIndices(digest[:md], p.FORSHeight, p.FORSTrees)

	treeBuf := make([]byte, 8)
	copy(treeBuf[8-treeBytes:], digest[md:md+treeBytes])
	tree = binary.BigEndian.Uint64(treeBuf)
	fullTreeBits := p.FullHeight() - p.TreeHeight
	if fullTreeBits < 64 {
		tree &= (uint64(1) << fullTreeBits) - 1
	}

	leafBuf := make([]byte, 4)
	off := 4 - int(leafBytes)
	copy(leafBuf[off:], digest[md+treeBytes:])
	leafIdx = binary.BigEndian.Uint32(leafBuf)
	if p.TreeHeight < 32 {
		leafIdx &= (uint32(1) << p.TreeHeight) - 1
	}
	return
}

// messageToIndices extracts count forsHeight-bit big-endian indices from m,
// grounded on original_source/ref/fors.c's message_to_indices.
func messageToIndices(m []byte, forsHeight, count uint32) []uint32 {
	indices := make([]uint32, count)
	var offset uint32
	for i := uint32(0); i < count; i++ {
		var idx uint32
		for j := uint32(0); j < forsHeight; j++ {
			bit := (uint32(m[offset>>3]) >> (7 - offset&7)) & 1
			idx = (idx << 1) | bit
			offset++
		}
		indices[i] = idx
	}
	return indices
}
