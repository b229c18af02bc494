package tslh

import (
	"fmt"
	"math/bits"
	"strings"
)

// Params holds the parameters of one SLH-DSA-SHAKE instance: the six
// standard named parameter sets below, or any other combination an
// implementer cares to register with the same invariants L0-L3 assume
// (w fixed at 16, n in {16,24,32}).
type Params struct {
	Name string

	N uint32 // hash/seed byte length

	D          uint32 // number of hypertree layers
	TreeHeight uint32 // height of each hypertree layer ("h'")

	FORSHeight uint32 // height of each FORS tree ("a")
	FORSTrees  uint32 // number of FORS trees ("k")

	WotsW uint16 // Winternitz parameter; CORE assumes this is 16
}

// FullHeight is the total hypertree height h = D * TreeHeight.
func (p Params) FullHeight() uint32 { return p.D * p.TreeHeight }

// LaneCount is N/8, the number of 64-bit lanes one n-byte share occupies
// in the chain-state packing of L1.
func (p Params) LaneCount() uint32 { return p.N / 8 }

func (p Params) WotsLogW() uint32 {
	return uint32(bits.Len16(p.WotsW - 1))
}

func (p Params) WotsLen1() uint32 {
	logW := p.WotsLogW()
	return (8*p.N + logW - 1) / logW
}

func (p Params) WotsLen2() uint32 {
	logW := p.WotsLogW()
	len1 := p.WotsLen1()
	maxChecksum := len1 * uint32(p.WotsW-1)
	bitsNeeded := uint32(bits.Len32(maxChecksum))
	return bitsNeeded/logW + 1
}

func (p Params) WotsLen() uint32 {
	return p.WotsLen1() + p.WotsLen2()
}

func (p Params) WotsSigBytes() uint32 {
	return p.WotsLen() * p.N
}

func (p Params) ForsSigBytes() uint32 {
	return p.FORSTrees * (1 + p.FORSHeight) * p.N
}

// SigBytes is the total byte size of a signature: a domain-separated
// randomizer, the FORS signature, and D WOTS+-plus-authentication-path
// blocks.
func (p Params) SigBytes() uint32 {
	return p.N + p.ForsSigBytes() + p.D*(p.WotsSigBytes()+p.TreeHeight*p.N)
}

// PkBytes is the byte size of a public key: public seed followed by
// hypertree root.
func (p Params) PkBytes() uint32 { return 2 * p.N }

// SkBytes is the byte size of a private key: secret seed, secret PRF
// key and the public key.
func (p Params) SkBytes() uint32 { return 2*p.N + p.PkBytes() }

func (p Params) String() string {
	return fmt.Sprintf("%s (n=%d d=%d h'=%d a=%d k=%d)",
		p.Name, p.N, p.D, p.TreeHeight, p.FORSHeight, p.FORSTrees)
}

// registry lists the six standard SLH-DSA-SHAKE parameter sets.
var registry = []Params{
	{Name: "slh-dsa-shake-128s", N: 16, D: 7, TreeHeight: 9, FORSHeight: 12, FORSTrees: 14, WotsW: 16},
	{Name: "slh-dsa-shake-128f", N: 16, D: 22, TreeHeight: 3, FORSHeight: 6, FORSTrees: 33, WotsW: 16},
	{Name: "slh-dsa-shake-192s", N: 24, D: 7, TreeHeight: 9, FORSHeight: 14, FORSTrees: 17, WotsW: 16},
	{Name: "slh-dsa-shake-192f", N: 24, D: 22, TreeHeight: 3, FORSHeight: 8, FORSTrees: 33, WotsW: 16},
	{Name: "slh-dsa-shake-256s", N: 32, D: 8, TreeHeight: 8, FORSHeight: 14, FORSTrees: 22, WotsW: 16},
	{Name: "slh-dsa-shake-256f", N: 32, D: 17, TreeHeight: 4, FORSHeight: 9, FORSTrees: 35, WotsW: 16},
}

// ParamsFromName looks up one of the registered parameter sets by name,
// case-insensitively.
func ParamsFromName(name string) (Params, error) {
	lname := strings.ToLower(name)
	for _, p := range registry {
		if p.Name == lname {
			return p, nil
		}
	}
	return Params{}, errorf("unknown parameter set %q", name)
}

// ListNames returns the names of all registered parameter sets.
func ListNames() []string {
	names := make([]string, len(registry))
	for i, p := range registry {
		names[i] = p.Name
	}
	return names
}
