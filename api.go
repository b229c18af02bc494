// Package tslh implements a threshold-masked, hash-based digital
// signature scheme built from a boolean-masked Keccak-p[1600,24] core, in
// the style of SLH-DSA (SPHINCS+): a stateless hypertree of WOTS+
// one-time signatures rooted in a FORS few-time signature.
package tslh

import "crypto/rand"

// PrivateKey is an tslh secret key: the two secret n-byte seeds, the
// public seed and hypertree root they imply, and an optional cache of
// previously computed hypertree subtrees.
type PrivateKey struct {
	ctx     *Context
	skSeed  []byte
	skPrf   []byte
	pubSeed []byte
	root    []byte
	cache   SubtreeCache
}

// PublicKey is an tslh public key: a public seed and the hypertree root
// it derives to.
type PublicKey struct {
	ctx     *Context
	pubSeed []byte
	root    []byte
}

// Signature is a detached tslh signature: a per-message randomizer, a
// FORS signature over the randomizer-derived digest, and a hypertree
// signature chaining up from the FORS public key to the hypertree root.
type Signature struct {
	p       Params
	r       []byte
	forsSig []byte
	htSig   []byte
}

// splitSecret draws a fresh random boolean 3-share split of seed, so that
// shares[0] XOR shares[1] XOR shares[2] == seed. A new split is drawn for
// every signing operation -- the secret key seed itself is at rest
// unmasked, but it is never absorbed into the permutation state except
// freshly re-masked, keeping the threshold countermeasure's blinding
// independent from one signature to the next.
func splitSecret(seed []byte) ([3][]byte, error) {
	n := len(seed)
	shares := [3][]byte{make([]byte, n), make([]byte, n), make([]byte, n)}
	if _, err := rand.Read(shares[1]); err != nil {
		return shares, err
	}
	if _, err := rand.Read(shares[2]); err != nil {
		return shares, err
	}
	for i := 0; i < n; i++ {
		shares[0][i] = seed[i] ^ shares[1][i] ^ shares[2][i]
	}
	return shares, nil
}

// computeHypertreeRoot derives the hypertree root implied by skSeed: the
// root of the single top-layer (layer D-1) Merkle tree of WOTS+ keys,
// independent of any particular leaf index.
func computeHypertreeRoot(ctx *Context, skSeedShares [3][]byte, pad *scratchPad) []byte {
	p := ctx.p
	n := int(p.N)
	level := p.D - 1

	for share := 0; share < 3; share++ {
		copy(ctx.merkleKey[level][share], skSeedShares[share])
	}

	var addr address
	addr.setType(ADDR_TYPE_TREE)
	addr.setLayer(level)
	addr.setTree(0)

	info := &hypertreeGenLeafInfo{level: level}
	leaves := genLeaves(ctx, 0, p.TreeHeight, hypertreeGenLeaf, &addr, info, pad)

	root := make([]byte, n)
	scratchPath := make([]byte, int(p.TreeHeight)*n)
	foldLeaves(root, scratchPath, leaves, 0, 0, p.TreeHeight, ctx, &addr, pad)
	return root
}

// GenerateKeyPair creates a fresh tslh keypair for the named parameter
// set (see ListNames).
func GenerateKeyPair(algName string) (*PrivateKey, *PublicKey, Error) {
	p, err := ParamsFromName(algName)
	if err != nil {
		return nil, nil, err.(Error)
	}

	pubSeed := make([]byte, p.N)
	skSeed := make([]byte, p.N)
	skPrf := make([]byte, p.N)
	for _, buf := range [][]byte{pubSeed, skSeed, skPrf} {
		if _, e := rand.Read(buf); e != nil {
			return nil, nil, wrapErrorf(e, "crypto/rand.Read")
		}
	}

	return DeriveKeyPair(p, pubSeed, skSeed, skPrf)
}

// DeriveKeyPair builds a keypair deterministically from caller-supplied
// seeds, each exactly p.N bytes. The returned private key starts with an
// in-memory subtree cache; call SetCache to swap in a persistent one.
func DeriveKeyPair(p Params, pubSeed, skSeed, skPrf []byte) (*PrivateKey, *PublicKey, Error) {
	ctx, err := NewContext(p, pubSeed)
	if err != nil {
		return nil, nil, err.(Error)
	}
	if len(skSeed) != int(p.N) || len(skPrf) != int(p.N) {
		return nil, nil, errorf("skSeed and skPrf must each be %d bytes", p.N)
	}

	pad := ctx.newScratchPad()
	shares, e := splitSecret(skSeed)
	if e != nil {
		return nil, nil, wrapErrorf(e, "failed to split secret seed")
	}
	root := computeHypertreeRoot(ctx, shares, pad)

	sk := &PrivateKey{
		ctx:     ctx,
		skSeed:  append([]byte(nil), skSeed...),
		skPrf:   append([]byte(nil), skPrf...),
		pubSeed: append([]byte(nil), pubSeed...),
		root:    root,
		cache:   NewMemSubtreeCache(),
	}
	pk := &PublicKey{ctx: ctx, pubSeed: sk.pubSeed, root: root}
	return sk, pk, nil
}

// PublicKey returns the public key matching this private key.
func (sk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{ctx: sk.ctx, pubSeed: sk.pubSeed, root: sk.root}
}

// SetCache replaces the private key's subtree cache (use NewMemSubtreeCache
// or OpenFSSubtreeCache). Pass nil to disable caching.
func (sk *PrivateKey) SetCache(cache SubtreeCache) {
	sk.cache = cache
}

// Sign produces a randomized signature of msg. Each call draws a fresh
// message randomizer from the system CSPRNG, per the hedged-signing mode
// of the SLH-DSA family; use SignDeterministic for a reproducible
// variant.
func (sk *PrivateKey) Sign(msg []byte) (*Signature, Error) {
	optRand := make([]byte, sk.ctx.p.N)
	if _, err := rand.Read(optRand); err != nil {
		return nil, wrapErrorf(err, "crypto/rand.Read")
	}
	return sk.sign(msg, optRand)
}

// SignDeterministic produces a signature of msg without consulting the
// system CSPRNG for the message randomizer, deriving it instead from the
// public seed -- useful for reproducible test vectors.
func (sk *PrivateKey) SignDeterministic(msg []byte) (*Signature, Error) {
	return sk.sign(msg, sk.pubSeed)
}

func (sk *PrivateKey) sign(msg, optRand []byte) (*Signature, Error) {
	ctx := sk.ctx
	p := ctx.p
	n := int(p.N)
	pad := ctx.newScratchPad()

	r := make([]byte, n)
	genMessageRandom(r, sk.skPrf, optRand, msg, pad)

	forsIndices, tree, idxLeaf := hashMessage(ctx, r, sk.pubSeed, sk.root, msg, pad)

	shares, err := splitSecret(sk.skSeed)
	if err != nil {
		return nil, wrapErrorf(err, "failed to split secret seed")
	}
	deriveKeySchedule(ctx, shares, tree, idxLeaf)

	var forsAddr address
	forsAddr.setLayer(0)
	forsAddr.setTree(tree)
	forsAddr.setKeypairAddr(idxLeaf)

	forsPk := make([]byte, n)
	forsSig := make([]byte, p.ForsSigBytes())
	forsSign(forsSig, forsPk, forsIndices, ctx, &forsAddr, pad)

	htSig := make([]byte, p.D*(p.WotsSigBytes()+p.TreeHeight*uint32(n)))
	hypertreeSign(htSig, ctx, forsPk, tree, idxLeaf, sk.cache, pad)

	return &Signature{p: p, r: r, forsSig: forsSig, htSig: htSig}, nil
}

// Verify reports whether sig is a valid signature of msg under pk.
func (pk *PublicKey) Verify(sig *Signature, msg []byte) (bool, Error) {
	if sig.p.Name != pk.ctx.p.Name {
		return false, errorf("signature and public key parameter sets differ")
	}
	ctx := pk.ctx
	pad := ctx.newScratchPad()

	forsIndices, tree, idxLeaf := hashMessage(ctx, sig.r, pk.pubSeed, pk.root, msg, pad)

	var forsAddr address
	forsAddr.setLayer(0)
	forsAddr.setTree(tree)
	forsAddr.setKeypairAddr(idxLeaf)

	forsPk := make([]byte, ctx.p.N)
	forsPkFromSig(forsPk, sig.forsSig, forsIndices, ctx, &forsAddr, pad)

	if !hypertreeVerify(sig.htSig, ctx, forsPk, tree, idxLeaf, pk.root, pad) {
		return false, errorf("invalid signature")
	}
	return true, nil
}

// Verify checks pk, sig and msg as raw byte slices against one another.
func Verify(pkBytes, sigBytes, msg []byte, p Params) (bool, Error) {
	pk, err := UnmarshalPublicKey(pkBytes, p)
	if err != nil {
		return false, err
	}
	sig, err := UnmarshalSignature(sigBytes, p)
	if err != nil {
		return false, err
	}
	return pk.Verify(sig, msg)
}

// MarshalBinary encodes pk as pubSeed || root.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	out := make([]byte, 2*pk.ctx.p.N)
	copy(out, pk.pubSeed)
	copy(out[pk.ctx.p.N:], pk.root)
	return out, nil
}

// UnmarshalPublicKey decodes a public key previously produced by
// MarshalBinary, for the given parameter set.
func UnmarshalPublicKey(buf []byte, p Params) (*PublicKey, Error) {
	if uint32(len(buf)) != p.PkBytes() {
		return nil, errorf("public key must be %d bytes, got %d", p.PkBytes(), len(buf))
	}
	pubSeed := append([]byte(nil), buf[:p.N]...)
	ctx, err := NewContext(p, pubSeed)
	if err != nil {
		return nil, err.(Error)
	}
	return &PublicKey{
		ctx:     ctx,
		pubSeed: pubSeed,
		root:    append([]byte(nil), buf[p.N:2*p.N]...),
	}, nil
}

// MarshalBinary encodes sk as skSeed || skPrf || pubSeed || root.
func (sk *PrivateKey) MarshalBinary() ([]byte, error) {
	n := sk.ctx.p.N
	out := make([]byte, sk.ctx.p.SkBytes())
	copy(out, sk.skSeed)
	copy(out[n:], sk.skPrf)
	copy(out[2*n:], sk.pubSeed)
	copy(out[3*n:], sk.root)
	return out, nil
}

// UnmarshalPrivateKey decodes a private key previously produced by
// MarshalBinary, for the given parameter set.
func UnmarshalPrivateKey(buf []byte, p Params) (*PrivateKey, Error) {
	if uint32(len(buf)) != p.SkBytes() {
		return nil, errorf("private key must be %d bytes, got %d", p.SkBytes(), len(buf))
	}
	n := p.N
	pubSeed := append([]byte(nil), buf[2*n:3*n]...)
	ctx, err := NewContext(p, pubSeed)
	if err != nil {
		return nil, err.(Error)
	}
	return &PrivateKey{
		ctx:     ctx,
		skSeed:  append([]byte(nil), buf[:n]...),
		skPrf:   append([]byte(nil), buf[n:2*n]...),
		pubSeed: pubSeed,
		root:    append([]byte(nil), buf[3*n:4*n]...),
		cache:   NewMemSubtreeCache(),
	}, nil
}

// MarshalBinary encodes sig as R || FORS signature || hypertree signature.
func (sig *Signature) MarshalBinary() ([]byte, error) {
	out := make([]byte, sig.p.SigBytes())
	n := sig.p.N
	copy(out, sig.r)
	copy(out[n:], sig.forsSig)
	copy(out[n+uint32(len(sig.forsSig)):], sig.htSig)
	return out, nil
}

// UnmarshalSignature decodes a signature previously produced by
// MarshalBinary, for the given parameter set.
func UnmarshalSignature(buf []byte, p Params) (*Signature, Error) {
	if uint32(len(buf)) != p.SigBytes() {
		return nil, errorf("signature must be %d bytes, got %d", p.SigBytes(), len(buf))
	}
	n := p.N
	forsLen := p.ForsSigBytes()
	return &Signature{
		p:       p,
		r:       append([]byte(nil), buf[:n]...),
		forsSig: append([]byte(nil), buf[n:n+forsLen]...),
		htSig:   append([]byte(nil), buf[n+forsLen:]...),
	}, nil
}
