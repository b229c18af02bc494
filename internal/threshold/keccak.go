// Package threshold implements a boolean-masked Keccak-p[1600,24]
// permutation: a small number of rounds at the start and end of the
// permutation operate on three XOR shares of the state using a
// cross-share product formula for the nonlinear (chi) step, while the
// rounds in the middle operate on a single collapsed share. The
// permutation itself is an implementation detail private to this
// package; only Permute and Shares are exported.
package threshold

// Shares holds the permutation's 3 x 25-lane logical state: twenty-five
// 64-bit lanes per share, indexed lane(x,y) = 5*y+x. The XOR of the three
// shares is the single logical Keccak-p[1600] state.
type Shares [3][25]uint64

// rotc[x][y] and piIndex encode the standard Keccak-p rho (rotation) and
// pi (lane permutation) steps, in the conventional x,y lane coordinates.
var rotc = [5][5]uint{
	{0, 36, 3, 41, 18},
	{1, 44, 10, 45, 2},
	{62, 6, 43, 15, 61},
	{28, 55, 25, 21, 56},
	{27, 20, 39, 8, 14},
}

var roundConstants = [24]uint64{
	0x0000000000000001, 0x0000000000008082,
	0x800000000000808A, 0x8000000080008000,
	0x000000000000808B, 0x0000000080000001,
	0x8000000080008081, 0x8000000000008009,
	0x000000000000008A, 0x0000000000000088,
	0x0000000080008009, 0x000000008000000A,
	0x000000008000808B, 0x800000000000008B,
	0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080,
	0x000000000000800A, 0x800000008000000A,
	0x8000000080008081, 0x8000000000008080,
	0x0000000080000001, 0x8000000080008008,
}

func rotl64(x uint64, n uint) uint64 {
	if n == 0 {
		return x
	}
	return (x << n) | (x >> (64 - n))
}

// theta applies the Keccak theta step in place to a single 25-lane state.
func theta(a *[25]uint64) {
	var c [5]uint64
	for x := 0; x < 5; x++ {
		c[x] = a[x] ^ a[x+5] ^ a[x+10] ^ a[x+15] ^ a[x+20]
	}
	var d [5]uint64
	for x := 0; x < 5; x++ {
		d[x] = c[(x+4)%5] ^ rotl64(c[(x+1)%5], 1)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			a[5*y+x] ^= d[x]
		}
	}
}

// rhoPi applies the rho (rotation) and pi (lane permutation) steps,
// producing b from a.
func rhoPi(a *[25]uint64) (b [25]uint64) {
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			nx := (2*x + 3*y) % 5
			b[5*nx+y] = rotl64(a[5*y+x], rotc[x][y])
		}
	}
	return
}

// unmaskedRound applies one full, unmasked Keccak-p round (theta, rho, pi,
// chi, iota) to a single 25-lane state.
func unmaskedRound(a *[25]uint64, rc uint64) {
	theta(a)
	b := rhoPi(a)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			a[5*y+x] = b[5*y+x] ^ (^b[5*y+(x+1)%5] & b[5*y+(x+2)%5])
		}
	}
	a[0] ^= rc
}

// maskedRound applies one full masked Keccak-p round to all three shares.
// Theta, rho and pi are linear and are applied to each share independently;
// chi is replaced by the cross-share product formula from §4.1: each
// output share is the XOR of nine pairwise AND terms drawn from all three
// shares, so that the XOR of the three output shares equals the result of
// applying the standard (unmasked) chi step to the XOR of the inputs. The
// round constant is folded into share 0, lane (0,0), only.
func maskedRound(s *Shares, rc uint64) {
	var b [3][25]uint64
	for i := 0; i < 3; i++ {
		theta(&s[i])
		b[i] = rhoPi(&s[i])
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			xi := [3]uint64{
				b[0][5*y+(x+1)%5],
				b[1][5*y+(x+1)%5],
				b[2][5*y+(x+1)%5],
			}
			yi := [3]uint64{
				b[0][5*y+(x+2)%5],
				b[1][5*y+(x+2)%5],
				b[2][5*y+(x+2)%5],
			}
			for share := 0; share < 3; share++ {
				out := b[share][5*y+x]
				for i := 0; i < 3; i++ {
					out ^= ^xi[i] & yi[(i+share)%3]
				}
				s[share][5*y+x] = out
			}
		}
	}
	s[0][0] ^= rc
}

// xorCollapse absorbs shares 1 and 2 into share 0, lane-wise; shares 1 and
// 2 retain their prior values. It is its own inverse in the sense the spec
// requires: applying it twice with unchanged shares 1/2 restores share 0 to
// its value before the first application, which is exactly how Program M
// reconstitutes a 3-share state after the unmasked middle rounds.
func xorCollapse(s *Shares) {
	for i := range s[0] {
		s[0][i] ^= s[1][i] ^ s[2][i]
	}
}

// Permute executes the standard 24-round Keccak-p[1600] permutation on the
// logical state S = in[0] ^ in[1] ^ in[2]. When wantMaskedOutput is false
// it writes the first four lanes of the result, unmasked, to out[0][:4];
// out[1] and out[2] are left untouched. When wantMaskedOutput is true it
// writes three XOR shares of the first four lanes to out[0..2][:4]. Only
// the first four lanes of the result are promised; the rest of in is
// consumed but the rest of out beyond the first four lanes is unspecified.
//
// Permute is total: it has no failure modes beyond the documented
// precondition that in's three shares XOR to the intended logical input.
func Permute(in Shares, out *Shares, wantMaskedOutput bool) {
	s := in
	for i := 0; i < blindedRounds; i++ {
		maskedRound(&s, roundConstants[i])
	}
	xorCollapse(&s)

	if !wantMaskedOutput {
		for i := blindedRounds; i < 24; i++ {
			unmaskedRound(&s[0], roundConstants[i])
		}
		copy(out[0][:4], s[0][:4])
		return
	}

	middleRounds := 24 - 2*blindedRounds
	for i := 0; i < middleRounds; i++ {
		unmaskedRound(&s[0], roundConstants[blindedRounds+i])
	}
	xorCollapse(&s)
	for i := 24 - blindedRounds; i < 24; i++ {
		maskedRound(&s, roundConstants[i])
	}
	copy(out[0][:4], s[0][:4])
	copy(out[1][:4], s[1][:4])
	copy(out[2][:4], s[2][:4])
}
