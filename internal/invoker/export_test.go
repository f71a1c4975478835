// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package invoker

import "time"

// SetNowFunc overrides the time source (for testing).
func (inv *Invoker) SetNowFunc(fn func() time.Time) {
	inv.nowFunc = fn
}
