package auth

// ActorKind distinguishes who is acting on the system. Staff act on
// behalf of a branch (receptionists, accountants, managers, the owner);
// customers act for themselves through the mobile app.
type ActorKind string

const (
	ActorStaff    ActorKind = "staff"
	ActorCustomer ActorKind = "customer"
)

// Actor is the resolved, already-authorized identity attached to a
// request by the auth middleware. Business logic receives it only for
// audit fields and never parses tokens or prefixed id strings itself.
type Actor struct {
	Kind ActorKind
	ID   int
	Role string
}

func StaffActor(id int, role string) Actor {
	return Actor{Kind: ActorStaff, ID: id, Role: role}
}

func CustomerActor(id int) Actor {
	return Actor{Kind: ActorCustomer, ID: id}
}

func (a Actor) IsStaff() bool {
	return a.Kind == ActorStaff
}
