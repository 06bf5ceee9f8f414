package exception

import "github.com/yanun0323/errors"

// ErrConsistency is the category root for invariants the system itself should
// have prevented. Always rolled back, always logged as a defect signal.
var ErrConsistency = errors.New("consistency violation")

var ErrSellerHoldingShort = errors.Wrap(ErrConsistency, "seller holding insufficient for traded quantity")
