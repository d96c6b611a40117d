package models

import (
	"testing"
	"time"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestBaseModelBeforeCreateKeepsExplicitID(t *testing.T) {
	base := BaseModel{ID: "fixed"}
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID != "fixed" {
		t.Fatalf("expected explicit ID to survive, got %s", base.ID)
	}
}

func TestKitchenIsOwner(t *testing.T) {
	kitchen := &Kitchen{OwnerID: "owner-1"}

	if !kitchen.IsOwner("owner-1") {
		t.Fatal("expected owner check to pass")
	}
	if kitchen.IsOwner("member-1") {
		t.Fatal("expected non-owner check to fail")
	}
	if kitchen.IsOwner("") {
		t.Fatal("expected empty user id to fail closed")
	}
}

func TestInvitationDerivedStates(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	accepted := now.Add(-time.Hour)

	cases := []struct {
		name     string
		invite   KitchenInvitation
		pending  bool
		expired  bool
		redeemed bool
	}{
		{
			name:    "pending",
			invite:  KitchenInvitation{ExpiresAt: now.Add(24 * time.Hour)},
			pending: true,
		},
		{
			name:    "expired",
			invite:  KitchenInvitation{ExpiresAt: now.Add(-time.Minute)},
			expired: true,
		},
		{
			name:     "accepted",
			invite:   KitchenInvitation{ExpiresAt: now.Add(24 * time.Hour), AcceptedAt: &accepted},
			redeemed: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.invite.IsPending(now); got != tc.pending {
				t.Fatalf("IsPending = %v, want %v", got, tc.pending)
			}
			if got := tc.invite.IsExpired(now); got != tc.expired {
				t.Fatalf("IsExpired = %v, want %v", got, tc.expired)
			}
			if got := tc.invite.IsAccepted(); got != tc.redeemed {
				t.Fatalf("IsAccepted = %v, want %v", got, tc.redeemed)
			}
		})
	}
}

func TestKitchenMemberTableName(t *testing.T) {
	if got := (KitchenMember{}).TableName(); got != "kitchen_members" {
		t.Fatalf("unexpected join table name %q", got)
	}
}
