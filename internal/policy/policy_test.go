package policy

import "testing"

func TestMemberRules(t *testing.T) {
	member := Membership{IsMember: true}
	stranger := Membership{}

	memberOnly := map[string]func(Membership) bool{
		"view kitchen":  CanViewKitchen,
		"create recipe": CanCreateRecipe,
		"update kitchen": CanUpdateKitchen,
		"view recipe":   CanViewRecipe,
		"update recipe": CanUpdateRecipe,
		"delete recipe": CanDeleteRecipe,
	}

	for name, rule := range memberOnly {
		if !rule(member) {
			t.Fatalf("expected member to be allowed to %s", name)
		}
		if rule(stranger) {
			t.Fatalf("expected non-member to be denied %s", name)
		}
	}
}

func TestOwnerRules(t *testing.T) {
	owner := Membership{IsMember: true, IsOwner: true}
	member := Membership{IsMember: true}

	ownerOnly := map[string]func(Membership) bool{
		"delete kitchen": CanDeleteKitchen,
		"invite":         CanInvite,
		"remove member":  CanRemoveMember,
	}

	for name, rule := range ownerOnly {
		if !rule(owner) {
			t.Fatalf("expected owner to be allowed to %s", name)
		}
		if rule(member) {
			t.Fatalf("expected plain member to be denied %s", name)
		}
	}
}

func TestEmptyMembershipFailsClosed(t *testing.T) {
	var none Membership

	for _, rule := range []func(Membership) bool{
		CanViewKitchen, CanCreateRecipe, CanUpdateKitchen,
		CanDeleteKitchen, CanInvite, CanRemoveMember,
		CanViewRecipe, CanUpdateRecipe, CanDeleteRecipe,
	} {
		if rule(none) {
			t.Fatal("expected empty membership to be denied everywhere")
		}
	}
}
