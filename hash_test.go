package tslh

import (
	"bytes"
	"testing"
)

func testParamsAndCtx(t *testing.T) (Params, *Context, *scratchPad) {
	p, err := ParamsFromName("slh-dsa-shake-128s")
	if err != nil {
		t.Fatalf("ParamsFromName: %v", err)
	}
	pubSeed := make([]byte, p.N)
	for i := range pubSeed {
		pubSeed[i] = byte(i)
	}
	ctx, err := NewContext(p, pubSeed)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return p, ctx, ctx.newScratchPad()
}

func TestThashDeterministic(t *testing.T) {
	_, ctx, pad := testParamsAndCtx(t)
	var addr address
	addr.setType(ADDR_TYPE_WOTSPK)
	in := bytes.Repeat([]byte{0x11}, int(ctx.p.N))

	out1 := make([]byte, ctx.p.N)
	out2 := make([]byte, ctx.p.N)
	thash(out1, in, ctx, &addr, pad)
	thash(out2, in, ctx, &addr, pad)
	if !bytes.Equal(out1, out2) {
		t.Fatalf("thash is not deterministic for identical inputs")
	}
}

func TestThashDomainSeparatesOnAddress(t *testing.T) {
	_, ctx, pad := testParamsAndCtx(t)
	in := bytes.Repeat([]byte{0x22}, int(ctx.p.N))

	var addr1, addr2 address
	addr1.setType(ADDR_TYPE_WOTSPK)
	addr1.setKeypairAddr(1)
	addr2.setType(ADDR_TYPE_WOTSPK)
	addr2.setKeypairAddr(2)

	out1 := make([]byte, ctx.p.N)
	out2 := make([]byte, ctx.p.N)
	thash(out1, in, ctx, &addr1, pad)
	thash(out2, in, ctx, &addr2, pad)
	if bytes.Equal(out1, out2) {
		t.Fatalf("thash must depend on the address, not just the input bytes")
	}
}

func TestThashDomainSeparatesOnPubSeed(t *testing.T) {
	p, ctx1, pad1 := testParamsAndCtx(t)
	pubSeed2 := make([]byte, p.N)
	for i := range pubSeed2 {
		pubSeed2[i] = byte(255 - i)
	}
	ctx2, err := NewContext(p, pubSeed2)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	pad2 := ctx2.newScratchPad()

	var addr address
	in := bytes.Repeat([]byte{0x33}, int(p.N))
	out1 := make([]byte, p.N)
	out2 := make([]byte, p.N)
	thash(out1, in, ctx1, &addr, pad1)
	thash(out2, in, ctx2, &addr, pad2)
	if bytes.Equal(out1, out2) {
		t.Fatalf("thash must depend on ctx.pubSeed")
	}
}

func TestGenMessageRandomDeterministic(t *testing.T) {
	_, ctx, pad := testParamsAndCtx(t)
	skPrf := bytes.Repeat([]byte{0x44}, int(ctx.p.N))
	optRand := bytes.Repeat([]byte{0x55}, int(ctx.p.N))
	msg := []byte("a message")

	r1 := make([]byte, ctx.p.N)
	r2 := make([]byte, ctx.p.N)
	genMessageRandom(r1, skPrf, optRand, msg, pad)
	genMessageRandom(r2, skPrf, optRand, msg, pad)
	if !bytes.Equal(r1, r2) {
		t.Fatalf("genMessageRandom must be deterministic given identical inputs")
	}

	r3 := make([]byte, ctx.p.N)
	genMessageRandom(r3, skPrf, optRand, []byte("a different message"), pad)
	if bytes.Equal(r1, r3) {
		t.Fatalf("genMessageRandom must depend on the message")
	}
}

func TestHashMessageIndicesInRange(t *testing.T) {
	_, ctx, pad := testParamsAndCtx(t)
	p := ctx.p
	r := bytes.Repeat([]byte{0x66}, int(p.N))
	root := bytes.Repeat([]byte{0x77}, int(p.N))
	msg := []byte("payload")

	indices, tree, leaf := hashMessage(ctx, r, ctx.pubSeed, root, msg, pad)
	if uint32(len(indices)) != p.FORSTrees {
		t.Fatalf("hashMessage returned %d FORS indices, want %d", len(indices), p.FORSTrees)
	}
	leavesPerTree := uint32(1) << p.FORSHeight
	for i, idx := range indices {
		if idx >= leavesPerTree {
			t.Fatalf("FORS index %d (tree %d) out of range: %d >= %d", idx, i, idx, leavesPerTree)
		}
	}
	if leaf >= uint32(1)<<p.TreeHeight {
		t.Fatalf("leaf index %d out of range for tree height %d", leaf, p.TreeHeight)
	}
	maxTree := p.FullHeight() - p.TreeHeight
	if maxTree < 64 && tree >= uint64(1)<<maxTree {
		t.Fatalf("tree index %d out of range for %d bits", tree, maxTree)
	}
}

func TestHashMessageDependsOnRAndRoot(t *testing.T) {
	_, ctx, pad := testParamsAndCtx(t)
	p := ctx.p
	r := bytes.Repeat([]byte{0x01}, int(p.N))
	root := bytes.Repeat([]byte{0x02}, int(p.N))
	msg := []byte("fixed message")

	base1, baseTree, baseLeaf := hashMessage(ctx, r, ctx.pubSeed, root, msg, pad)

	otherR := bytes.Repeat([]byte{0x09}, int(p.N))
	altIndices, altTree, altLeaf := hashMessage(ctx, otherR, ctx.pubSeed, root, msg, pad)
	if slicesEqual32(base1, altIndices) && baseTree == altTree && baseLeaf == altLeaf {
		t.Fatalf("hashMessage output must depend on R")
	}

	otherRoot := bytes.Repeat([]byte{0x0a}, int(p.N))
	altIndices2, altTree2, altLeaf2 := hashMessage(ctx, r, ctx.pubSeed, otherRoot, msg, pad)
	if slicesEqual32(base1, altIndices2) && baseTree == altTree2 && baseLeaf == altLeaf2 {
		t.Fatalf("hashMessage output must depend on the public root")
	}
}

func slicesEqual32(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMessageToIndicesPacksMSBFirst(t *testing.T) {
	// A single 0x80 byte, 1-bit indices, 8 of them: 1,0,0,0,0,0,0,0.
	got := messageToIndices([]byte{0x80}, 1, 8)
	want := []uint32{1, 0, 0, 0, 0, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("messageToIndices()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMessageToIndicesWidth(t *testing.T) {
	// Four 4-bit nibbles out of two bytes.
	got := messageToIndices([]byte{0x12, 0x34}, 4, 4)
	want := []uint32{0x1, 0x2, 0x3, 0x4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("messageToIndices()[%d] = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestCollapseSharesXorsAllThree(t *testing.T) {
	n := 16
	shares := [3][]byte{
		bytes.Repeat([]byte{0xff}, n),
		bytes.Repeat([]byte{0x0f}, n),
		bytes.Repeat([]byte{0xf0}, n),
	}
	out := make([]byte, n)
	collapseShares(out, shares)
	for i, b := range out {
		want := shares[0][i] ^ shares[1][i] ^ shares[2][i]
		if b != want {
			t.Fatalf("collapseShares()[%d] = %#x, want %#x", i, b, want)
		}
	}
}

func TestPrfHashFunctionSharesXorToUnmaskedResult(t *testing.T) {
	_, ctx, _ := testParamsAndCtx(t)
	n := int(ctx.p.N)
	in := [3][]byte{
		bytes.Repeat([]byte{0x01}, n),
		bytes.Repeat([]byte{0x02}, n),
		bytes.Repeat([]byte{0x03}, n),
	}
	var addr address
	addr.setType(ADDR_TYPE_PRF_MERKLE)

	maskedOut := [3][]byte{make([]byte, n), make([]byte, n), make([]byte, n)}
	prfHashFunction(maskedOut, in, ctx, &addr)

	collapsed := make([]byte, n)
	collapseShares(collapsed, in)
	var cs chainState
	off := setupChain(&cs, in, ctx, &addr)
	transform(&cs, off, int(ctx.p.LaneCount()), false)
	unmasked := make([]byte, n)
	untransform(unmasked, &cs, off, int(ctx.p.LaneCount()))

	maskedCollapsed := make([]byte, n)
	collapseShares(maskedCollapsed, maskedOut)
	if !bytes.Equal(unmasked, maskedCollapsed) {
		t.Fatalf("prfHashFunction's three output shares must XOR to the unmasked result")
	}
}
