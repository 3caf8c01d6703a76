package contracts

import "time"

// Invalidator announces that the catalog changed. Mutations call it only
// after their store calls have completed.
type Invalidator interface {
	NotifyChanged()
	NotifyAfter(d time.Duration) (cancel func())
	InvokeSlots()
}
