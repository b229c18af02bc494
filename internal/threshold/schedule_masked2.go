//go:build tslh_masked2

package threshold

// blindedRounds selects the 2-masked-round schedule variant. Build with
// -tags tslh_masked2 to select it; see schedule_default.go.
const blindedRounds = 2
