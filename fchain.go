package tslh

import "github.com/tslh-dsa/tslh/internal/threshold"

// chainState is the CS entity of spec.md §3: the permutation's persistent
// 3x25-lane input buffer, reused across the F calls of a Winternitz chain.
// It is exactly the logical state threshold.Permute operates on.
type chainState = threshold.Shares

// packForChain serializes addr as 32 bytes with each of its 8 words
// little-endian, rather than the big-endian encoding writeInto uses for
// ordinary tweakable-hash absorption. This is a private convention of the
// chain-state lane packing below: it only has to agree with itself
// (setupChain's initial pack and incrementHashAddr's lane arithmetic), and
// choosing little-endian per word makes OFFSET_HASH_ADDR's low byte line
// up with lane bit 0, so that repeatedly calling incrementHashAddr from
// hash_addr=0 produces bit-identical chain-state lanes to calling
// setupChain once with hash_addr already set to the same count.
func (addr *address) packForChain(buf []byte) {
	for i := 0; i < 8; i++ {
		w := addr[i]
		buf[4*i+0] = byte(w)
		buf[4*i+1] = byte(w >> 8)
		buf[4*i+2] = byte(w >> 16)
		buf[4*i+3] = byte(w >> 24)
	}
}

func packLanesLE(lanes []uint64, data []byte) {
	for i := range lanes {
		lanes[i] = 0
		for j := 0; j < 8; j++ {
			lanes[i] |= uint64(data[8*i+j]) << (8 * j)
		}
	}
}

func unpackLanesLE(data []byte, lanes []uint64) {
	for i, lane := range lanes {
		for j := 0; j < 8; j++ {
			data[8*i+j] = byte(lane >> (8 * j))
		}
	}
}

// setupChain zeroes cs and packs ctx's public seed, addr, and the three
// shares of prfShares into it, returning the lane offset (hashOffset) at
// which the running hash shares live -- N+4, per spec.md §4.2.
func setupChain(cs *chainState, prfShares [3][]byte, ctx *Context, addr *address) int {
	for share := 0; share < 3; share++ {
		for i := range cs[share] {
			cs[share][i] = 0
		}
	}

	n := int(ctx.p.LaneCount())
	packLanesLE(cs[0][0:n], ctx.pubSeed)

	var addrBuf [32]byte
	addr.packForChain(addrBuf[:])
	packLanesLE(cs[0][n:n+4], addrBuf[:])

	hashOffset := n + 4
	packLanesLE(cs[0][hashOffset:hashOffset+n], prfShares[0])
	packLanesLE(cs[1][hashOffset:hashOffset+n], prfShares[1])
	packLanesLE(cs[2][hashOffset:hashOffset+n], prfShares[2])

	cs[0][hashOffset+n] = 0x1f
	cs[0][16] ^= 1 << 63

	return hashOffset
}

// incrementHashAddr advances addr's hash-chain position without rebuilding
// the whole chain state, mutating only share 0 of cs, per I2.
func incrementHashAddr(cs *chainState, ctx *Context, addr *address) {
	addr.setHash(addr[6] + 1)
	n := int(ctx.p.LaneCount())
	laneIdx := n + OFFSET_HASH_ADDR/8
	shift := uint(8 * (OFFSET_HASH_ADDR % 8))
	cs[0][laneIdx] += 1 << shift
}

// transform invokes the L0 permutation over cs and writes the result back
// into the hash-offset lanes, keeping all three shares live when keepMasked
// is true and collapsing to a single share otherwise.
func transform(cs *chainState, hashOffset int, n int, keepMasked bool) {
	var out threshold.Shares
	threshold.Permute(*cs, &out, keepMasked)
	copy(cs[0][hashOffset:hashOffset+n], out[0][:n])
	if keepMasked {
		copy(cs[1][hashOffset:hashOffset+n], out[1][:n])
		copy(cs[2][hashOffset:hashOffset+n], out[2][:n])
	}
}

// untransform serializes the n lanes at offset of share 0 of cs as
// little-endian bytes into out.
func untransform(out []byte, cs *chainState, offset int, n int) {
	unpackLanesLE(out, cs[0][offset:offset+n])
}
