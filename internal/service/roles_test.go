package service_test

import (
	"errors"
	"testing"

	"pickup-service/internal/models"
	"pickup-service/internal/service"
)

func TestCan(t *testing.T) {
	cases := []struct {
		role models.Role
		cap  service.Capability
		want bool
	}{
		{models.RoleMarketer, service.CapCreatePickup, true},
		{models.RoleMarketer, service.CapConfirmReturn, false},
		{models.RoleMarketer, service.CapViewTeam, false},
		{models.RoleAdmin, service.CapCreatePickup, false},
		{models.RoleAdmin, service.CapViewTeam, true},
		{models.RoleSuperAdmin, service.CapRequestWithdrawal, true},
		{models.RoleOperator, service.CapReviewWithdrawal, true},
		{models.RoleOperator, service.CapRequestWithdrawal, false},
		{models.RoleOperator, service.CapSellPickup, false},
		{models.Role("ROLE_GUEST"), service.CapViewAll, false},
	}
	for _, tc := range cases {
		if got := service.Can(tc.role, tc.cap); got != tc.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tc.role, tc.cap, got, tc.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	r, err := service.ParseRole(" role_marketer ")
	if err != nil || r != models.RoleMarketer {
		t.Fatalf("ParseRole = %q, %v", r, err)
	}
	if _, err := service.ParseRole("ROLE_ROOT"); !errors.Is(err, service.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}
