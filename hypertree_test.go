package tslh

import (
	"bytes"
	"testing"
)

func testHypertreeCtx(t *testing.T) (*Context, Params) {
	p, _ := ParamsFromName("slh-dsa-shake-128s")
	ctx, err := NewContext(p, bytes.Repeat([]byte{0x51}, int(p.N)))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx, p
}

// TestHypertreeSignThenVerify is the end-to-end hypertree property P4:
// a signature produced for a given (tree, idxLeaf) under the key
// schedule deriveKeySchedule computes for it must verify against the
// root computeHypertreeRoot derives for the same secret seed.
func TestHypertreeSignThenVerify(t *testing.T) {
	ctx, p := testHypertreeCtx(t)
	n := int(p.N)
	pad := ctx.newScratchPad()

	skSeed := [3][]byte{
		bytes.Repeat([]byte{0x61}, n),
		bytes.Repeat([]byte{0x62}, n),
		bytes.Repeat([]byte{0x63}, n),
	}
	pkRoot := computeHypertreeRoot(ctx, skSeed, pad)

	tree := uint64(3)
	idxLeaf := uint32(5)
	deriveKeySchedule(ctx, skSeed, tree, idxLeaf)

	root := bytes.Repeat([]byte{0x70}, n) // stands in for a FORS public key
	sig := make([]byte, p.D*(p.WotsSigBytes()+p.TreeHeight*uint32(n)))
	hypertreeSign(sig, ctx, root, tree, idxLeaf, nil, pad)

	if !hypertreeVerify(sig, ctx, root, tree, idxLeaf, pkRoot, pad) {
		t.Fatalf("hypertreeVerify rejected a signature hypertreeSign just produced")
	}
}

func TestHypertreeVerifyRejectsWrongRoot(t *testing.T) {
	ctx, p := testHypertreeCtx(t)
	n := int(p.N)
	pad := ctx.newScratchPad()

	skSeed := [3][]byte{
		bytes.Repeat([]byte{0x61}, n),
		bytes.Repeat([]byte{0x62}, n),
		bytes.Repeat([]byte{0x63}, n),
	}
	pkRoot := computeHypertreeRoot(ctx, skSeed, pad)

	tree := uint64(3)
	idxLeaf := uint32(5)
	deriveKeySchedule(ctx, skSeed, tree, idxLeaf)

	root := bytes.Repeat([]byte{0x70}, n)
	sig := make([]byte, p.D*(p.WotsSigBytes()+p.TreeHeight*uint32(n)))
	hypertreeSign(sig, ctx, root, tree, idxLeaf, nil, pad)

	wrongPkRoot := append([]byte(nil), pkRoot...)
	wrongPkRoot[0] ^= 0x01
	if hypertreeVerify(sig, ctx, root, tree, idxLeaf, wrongPkRoot, pad) {
		t.Fatalf("hypertreeVerify must reject a signature against the wrong public root")
	}
}

func TestHypertreeVerifyRejectsTamperedSignature(t *testing.T) {
	ctx, p := testHypertreeCtx(t)
	n := int(p.N)
	pad := ctx.newScratchPad()

	skSeed := [3][]byte{
		bytes.Repeat([]byte{0x61}, n),
		bytes.Repeat([]byte{0x62}, n),
		bytes.Repeat([]byte{0x63}, n),
	}
	pkRoot := computeHypertreeRoot(ctx, skSeed, pad)

	tree := uint64(3)
	idxLeaf := uint32(5)
	deriveKeySchedule(ctx, skSeed, tree, idxLeaf)

	root := bytes.Repeat([]byte{0x70}, n)
	sig := make([]byte, p.D*(p.WotsSigBytes()+p.TreeHeight*uint32(n)))
	hypertreeSign(sig, ctx, root, tree, idxLeaf, nil, pad)
	sig[0] ^= 0x01

	if hypertreeVerify(sig, ctx, root, tree, idxLeaf, pkRoot, pad) {
		t.Fatalf("hypertreeVerify must reject a tampered signature")
	}
}

// TestHypertreeSignCacheMatchesUncached checks that consulting and
// populating a SubtreeCache never changes the signature hypertreeSign
// produces -- the cache is an optimization, not a change in semantics.
func TestHypertreeSignCacheMatchesUncached(t *testing.T) {
	ctx, p := testHypertreeCtx(t)
	n := int(p.N)
	pad := ctx.newScratchPad()

	skSeed := [3][]byte{
		bytes.Repeat([]byte{0x61}, n),
		bytes.Repeat([]byte{0x62}, n),
		bytes.Repeat([]byte{0x63}, n),
	}
	tree := uint64(3)
	idxLeaf := uint32(5)
	root := bytes.Repeat([]byte{0x70}, n)

	deriveKeySchedule(ctx, skSeed, tree, idxLeaf)
	sigUncached := make([]byte, p.D*(p.WotsSigBytes()+p.TreeHeight*uint32(n)))
	hypertreeSign(sigUncached, ctx, root, tree, idxLeaf, nil, pad)

	deriveKeySchedule(ctx, skSeed, tree, idxLeaf)
	cache := NewMemSubtreeCache()
	sigCached := make([]byte, p.D*(p.WotsSigBytes()+p.TreeHeight*uint32(n)))
	hypertreeSign(sigCached, ctx, root, tree, idxLeaf, cache, pad)

	if !bytes.Equal(sigUncached, sigCached) {
		t.Fatalf("a cache must not change hypertreeSign's output")
	}

	// Signing the same (tree, idxLeaf) again should hit every populated
	// layer of the cache and still reproduce the identical signature.
	deriveKeySchedule(ctx, skSeed, tree, idxLeaf)
	sigCachedAgain := make([]byte, p.D*(p.WotsSigBytes()+p.TreeHeight*uint32(n)))
	hypertreeSign(sigCachedAgain, ctx, root, tree, idxLeaf, cache, pad)
	if !bytes.Equal(sigCached, sigCachedAgain) {
		t.Fatalf("a warm cache must reproduce the identical signature")
	}
}

// TestHypertreeSignLogsCacheMiss exercises the Logger plumbing the same
// way the teacher's own tests do: *testing.T satisfies Logger directly,
// so SetLogger(t) routes the cache-miss diagnostic straight into the test
// log, where t.Logf is harmless to call from a non-failing path.
func TestHypertreeSignLogsCacheMiss(t *testing.T) {
	defer SetLogger(nil)
	SetLogger(t)

	ctx, p := testHypertreeCtx(t)
	n := int(p.N)
	pad := ctx.newScratchPad()

	skSeed := [3][]byte{
		bytes.Repeat([]byte{0x61}, n),
		bytes.Repeat([]byte{0x62}, n),
		bytes.Repeat([]byte{0x63}, n),
	}
	tree := uint64(3)
	idxLeaf := uint32(5)
	deriveKeySchedule(ctx, skSeed, tree, idxLeaf)

	root := bytes.Repeat([]byte{0x70}, n)
	sig := make([]byte, p.D*(p.WotsSigBytes()+p.TreeHeight*uint32(n)))

	// A fresh cache guarantees every layer misses on this first sign, so
	// the diagnostic fires at least once. SetLogger(t) makes that visible
	// to the test runner's output without this test asserting on it --
	// the point is that log.Logf is actually reachable, not that its
	// text is stable.
	hypertreeSign(sig, ctx, root, tree, idxLeaf, NewMemSubtreeCache(), pad)
}

func TestComputeHypertreeRootDeterministic(t *testing.T) {
	ctx, p := testHypertreeCtx(t)
	n := int(p.N)
	pad := ctx.newScratchPad()
	skSeed := [3][]byte{
		bytes.Repeat([]byte{0x11}, n),
		bytes.Repeat([]byte{0x12}, n),
		bytes.Repeat([]byte{0x13}, n),
	}
	root1 := computeHypertreeRoot(ctx, skSeed, pad)
	root2 := computeHypertreeRoot(ctx, skSeed, pad)
	if !bytes.Equal(root1, root2) {
		t.Fatalf("computeHypertreeRoot must be deterministic for a fixed secret seed")
	}
}
