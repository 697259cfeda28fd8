package txbuilder

import (
	"math"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/app/appmessage"
	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// minFeeRate is the network's floor fee rate in sompi per gram. Rates below
// it are not relayed.
const minFeeRate = 1.0

// defaultMaxFee caps the fee of a build that did not state a policy. An
// estimate gone wild should not silently burn more than this.
const defaultMaxFee = dagconfig.SompiPerKaspa

// FeePolicy expresses the caller's fee preference. A nil policy means the
// node's normal-priority rate capped at defaultMaxFee.
type FeePolicy interface {
	// feeLimits resolves the policy against the node's current estimate.
	feeLimits(estimate *appmessage.RPCFeeEstimate) (feeRate float64, maxFee uint64, err error)
}

// ExactFeeRate pins the fee rate in sompi per gram, with no fee cap.
type ExactFeeRate float64

func (p ExactFeeRate) feeLimits(_ *appmessage.RPCFeeEstimate) (float64, uint64, error) {
	if float64(p) < minFeeRate {
		return 0, 0, errors.Wrapf(model.ErrUserInput, "fee rate %f is below the minimum %f", float64(p), minFeeRate)
	}
	return float64(p), math.MaxUint64, nil
}

// MaxFeeRate uses the node's estimated rate, bounded from above.
type MaxFeeRate float64

func (p MaxFeeRate) feeLimits(estimate *appmessage.RPCFeeEstimate) (float64, uint64, error) {
	if float64(p) < minFeeRate {
		return 0, 0, errors.Wrapf(model.ErrUserInput, "maximum fee rate %f is below the minimum %f", float64(p), minFeeRate)
	}
	return math.Min(float64(p), normalFeeRate(estimate)), math.MaxUint64, nil
}

// MaxFee uses the node's estimated rate and bounds the total fee in sompi.
type MaxFee uint64

func (p MaxFee) feeLimits(estimate *appmessage.RPCFeeEstimate) (float64, uint64, error) {
	return normalFeeRate(estimate), uint64(p), nil
}

// normalFeeRate extracts the node's normal-priority bucket rate, clamped to
// the relay floor.
func normalFeeRate(estimate *appmessage.RPCFeeEstimate) float64 {
	if estimate == nil || len(estimate.NormalBuckets) == 0 {
		return minFeeRate
	}
	return math.Max(estimate.NormalBuckets[0].Feerate, minFeeRate)
}

// resolveFeeLimits turns a possibly-nil policy into concrete limits using a
// fresh node estimate.
func (b *Builder) resolveFeeLimits(estimate *appmessage.RPCFeeEstimate, policy FeePolicy) (
	feeRate float64, maxFee uint64, err error) {

	if policy == nil {
		return normalFeeRate(estimate), defaultMaxFee, nil
	}
	return policy.feeLimits(estimate)
}

// feeForMass converts a mass to a fee under the given limits.
func feeForMass(mass uint64, feeRate float64, maxFee uint64) uint64 {
	fee := uint64(math.Ceil(float64(mass) * feeRate))
	if fee > maxFee {
		fee = maxFee
	}
	return fee
}
