package models

import "testing"

func TestPickupStatus_CanTransition(t *testing.T) {
	allowed := map[PickupStatus][]PickupStatus{
		PickupPending:           {PickupSold, PickupTransferRequested, PickupReturnRequested, PickupExpired},
		PickupTransferRequested: {PickupTransferred, PickupPending},
		PickupReturnRequested:   {PickupReturned, PickupPending},
	}
	all := []PickupStatus{
		PickupPending, PickupSold, PickupTransferRequested, PickupTransferred,
		PickupReturnRequested, PickupReturned, PickupExpired,
	}
	for _, from := range all {
		want := map[PickupStatus]bool{}
		for _, to := range allowed[from] {
			want[to] = true
		}
		for _, to := range all {
			if got := from.CanTransition(to); got != want[to] {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want[to])
			}
		}
	}
}

func TestPickupStatus_IsOpen(t *testing.T) {
	for _, s := range []PickupStatus{PickupPending, PickupTransferRequested, PickupReturnRequested} {
		if !s.IsOpen() {
			t.Errorf("%s must be open", s)
		}
	}
	for _, s := range []PickupStatus{PickupSold, PickupTransferred, PickupReturned, PickupExpired} {
		if s.IsOpen() {
			t.Errorf("%s must be terminal", s)
		}
	}
}
