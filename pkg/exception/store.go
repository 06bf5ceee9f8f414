package exception

import "github.com/yanun0323/errors"

// ErrStore is the category root for transient ledger-store failures. The
// owning pairing is abandoned without mutation and retried on the next tick.
var ErrStore = errors.New("store failure")
