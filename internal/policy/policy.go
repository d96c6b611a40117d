// Package policy holds the pure access rules for kitchens and recipes.
//
// Services resolve a Membership for the requesting user and ask policy for a
// decision; every rule fails closed when the membership is empty. Note the
// observed asymmetry: any member may rename a kitchen, while delete, invite,
// and member removal stay owner-only.
package policy

// Membership captures the requesting user's standing in a kitchen.
type Membership struct {
	IsMember bool
	IsOwner  bool
}

// CanViewKitchen allows any member to view the kitchen and its recipes.
func CanViewKitchen(m Membership) bool {
	return m.IsMember
}

// CanCreateRecipe allows any member to add recipes.
func CanCreateRecipe(m Membership) bool {
	return m.IsMember
}

// CanUpdateKitchen allows any member to rename the kitchen.
func CanUpdateKitchen(m Membership) bool {
	return m.IsMember
}

// CanDeleteKitchen is reserved for the owner.
func CanDeleteKitchen(m Membership) bool {
	return m.IsOwner
}

// CanInvite is reserved for the owner.
func CanInvite(m Membership) bool {
	return m.IsOwner
}

// CanRemoveMember is reserved for the owner.
func CanRemoveMember(m Membership) bool {
	return m.IsOwner
}

// CanViewRecipe allows members of the owning kitchen.
func CanViewRecipe(m Membership) bool {
	return m.IsMember
}

// CanUpdateRecipe allows members of the owning kitchen.
func CanUpdateRecipe(m Membership) bool {
	return m.IsMember
}

// CanDeleteRecipe allows members of the owning kitchen.
func CanDeleteRecipe(m Membership) bool {
	return m.IsMember
}
