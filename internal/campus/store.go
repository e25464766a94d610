package campus

import "context"

// Store runs operations inside a transaction. fn's writes are committed
// only if it returns nil; any error rolls all of them back. Implementations
// may invoke fn more than once when the backend asks for a retry, so fn
// must not have side effects outside tx.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the key-based query surface available to a single operation.
// Lookups return ErrNotFound when nothing matches. Lists are ordered by id.
type Tx interface {
	Member(ctx context.Context, userID int64) (Member, error)

	CreateCourse(ctx context.Context, c *Course) error
	CourseByID(ctx context.Context, id int64) (Course, error)
	CourseByCode(ctx context.Context, code string) (Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	// DeleteCourse removes the course and, transitively, its groups with
	// their memberships, requests and events.
	DeleteCourse(ctx context.Context, id int64) error

	CreateGroup(ctx context.Context, g *Group) error
	GroupByID(ctx context.Context, id int64) (Group, error)
	// ListGroups lists all groups, or only those of courseID when it is non-zero.
	ListGroups(ctx context.Context, courseID int64) ([]Group, error)
	GroupsForUser(ctx context.Context, userID int64) ([]Group, error)
	SetAccepting(ctx context.Context, groupID int64, accepting bool) error
	// AddMember is a no-op if the user already belongs to the group.
	AddMember(ctx context.Context, groupID, userID int64) error
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
	Members(ctx context.Context, groupID int64) ([]Member, error)

	// CreateRequest returns ErrConflict if (group, user) already has a request.
	CreateRequest(ctx context.Context, r *JoinRequest) error
	// RequestByID locks the request for the rest of the transaction.
	RequestByID(ctx context.Context, id int64) (JoinRequest, error)
	HasRequest(ctx context.Context, groupID, userID int64) (bool, error)
	ListRequests(ctx context.Context, groupID int64) ([]JoinRequest, error)
	// ResolveRequest moves a pending request to status. It returns
	// ErrConflict if the request is no longer pending.
	ResolveRequest(ctx context.Context, id int64, status Status) error

	CreateEvent(ctx context.Context, e *Event) error
	EventByID(ctx context.Context, id int64) (Event, error)
	ListEvents(ctx context.Context, groupID int64) ([]Event, error)
	EventsForUser(ctx context.Context, userID int64) ([]Event, error)
	// AddAttendee is a no-op if the user already attends.
	AddAttendee(ctx context.Context, eventID, userID int64) error
	Attendees(ctx context.Context, eventID int64) ([]Member, error)
	DeleteEvent(ctx context.Context, id int64) error
}
