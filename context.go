package tslh

import "golang.org/x/crypto/sha3"

// Context binds one Params instance to a keypair's public seed and, during
// a signing operation, the L3 key schedule derived from it. A Context is
// not safe for concurrent signing operations that share the same key
// schedule buffers: PrivateKey.Sign rewrites its key's Context schedule
// (via deriveKeySchedule) on every call, so concurrent signers each need
// their own Context.
type Context struct {
	p       Params
	pubSeed []byte

	// merkleKey[level] and forsSeed are the 3-share seeds L3 derives at
	// the start of every signing operation, per spec.md §4.4. merkleKey
	// is indexed by hypertree level, 0 (bottom) .. D-1 (top).
	merkleKey [][3][]byte
	forsSeed  [3][]byte
}

// NewContext builds a Context for the given parameter set and public seed.
// pubSeed must be exactly p.N bytes.
func NewContext(p Params, pubSeed []byte) (*Context, error) {
	if uint32(len(pubSeed)) != p.N {
		return nil, errorf("public seed must be %d bytes, got %d", p.N, len(pubSeed))
	}
	ctx := &Context{
		p:         p,
		pubSeed:   append([]byte(nil), pubSeed...),
		merkleKey: make([][3][]byte, p.D),
	}
	for level := range ctx.merkleKey {
		for share := 0; share < 3; share++ {
			ctx.merkleKey[level][share] = make([]byte, p.N)
		}
	}
	for share := 0; share < 3; share++ {
		ctx.forsSeed[share] = make([]byte, p.N)
	}
	return ctx, nil
}

// NewContextFromName builds a Context using one of the registered
// parameter sets.
func NewContextFromName(name string, pubSeed []byte) (*Context, error) {
	p, err := ParamsFromName(name)
	if err != nil {
		return nil, err
	}
	return NewContext(p, pubSeed)
}

func (ctx *Context) Params() Params { return ctx.p }

// scratchPad holds the buffers threaded through a signing or verification
// operation so that the tree-hash helpers above L1/L2/L3 never allocate on
// the hot path, mirroring the teacher's hashScratchPad / newScratchPad
// pattern of one pre-sized backing buffer sliced per call site (fBuf,
// hBuf, wotsBuf in the teacher's hash.go) instead of a fresh make() per
// hash call.
//
// combineBuf stages the input to a thash call whose result does not
// outlive that call: a WOTS+ chain-tip array awaiting its closing thash,
// or two child nodes awaiting a Merkle combine. Values that must survive
// past a single thash call -- a leaf stored into a subtree's leaf array,
// a FORS root accumulated across trees, a node carried up several tree
// levels -- are never backed by this buffer, the same discipline the
// teacher's lTree applies when it finally copies its folded WOTS+ public
// key into a freshly allocated return value.
type scratchPad struct {
	shake sha3.ShakeHash

	combineBuf []byte
}

func (ctx *Context) newScratchPad() *scratchPad {
	n := int(ctx.p.N)
	size := 2 * n
	if wotsBytes := int(ctx.p.WotsLen()) * n; wotsBytes > size {
		size = wotsBytes
	}
	return &scratchPad{
		shake:      sha3.NewShake256(),
		combineBuf: make([]byte, size),
	}
}
