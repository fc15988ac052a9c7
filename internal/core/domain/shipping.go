package domain

import "fmt"

// ShippingTransitions is an allow-list of seller-driven shipping status changes.
// A status mapped to an empty set is terminal.
type ShippingTransitions map[ShippingStatus]map[ShippingStatus]struct{}

// StrictShippingTransitions only lets an order move forward through fulfilment.
var StrictShippingTransitions = ShippingTransitions{
	ShippingStatusPending: {
		ShippingStatusProcessing: {},
		ShippingStatusCanceled:   {},
	},
	ShippingStatusProcessing: {
		ShippingStatusShipped:  {},
		ShippingStatusCanceled: {},
	},
	ShippingStatusShipped: {
		ShippingStatusDelivered: {},
	},
	ShippingStatusDelivered: {},
	ShippingStatusCanceled:  {},
}

// PermissiveShippingTransitions lets a seller set any status from any status.
var PermissiveShippingTransitions = func() ShippingTransitions {
	t := make(ShippingTransitions, len(validShippingStatuses))
	for from := range validShippingStatuses {
		t[from] = make(map[ShippingStatus]struct{}, len(validShippingStatuses))
		for to := range validShippingStatuses {
			t[from][to] = struct{}{}
		}
	}
	return t
}()

const (
	ShippingPolicyPermissive = "permissive"
	ShippingPolicyStrict     = "strict"
)

func ShippingTransitionsByName(name string) (ShippingTransitions, error) {
	switch name {
	case "", ShippingPolicyPermissive:
		return PermissiveShippingTransitions, nil
	case ShippingPolicyStrict:
		return StrictShippingTransitions, nil
	}
	return nil, fmt.Errorf("unknown shipping transition policy %q", name)
}

// Allowed reports whether from -> to is permitted. Staying in place is always allowed.
func (t ShippingTransitions) Allowed(from, to ShippingStatus) bool {
	if from == to {
		return true
	}
	next, ok := t[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Check returns ErrShippingTransition when from -> to is not permitted.
func (t ShippingTransitions) Check(from, to ShippingStatus) error {
	if !t.Allowed(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrShippingTransition, from, to)
	}
	return nil
}
