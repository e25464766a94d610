package campus

import (
	"context"
	"strings"

	"studyhall.org/internal/audit"
	"studyhall.org/internal/obs"
	"studyhall.org/internal/validate"
)

type groupInput struct {
	CourseCode string `json:"course_code" validate:"required,notblank"`
}

// CreateGroup opens a new group under courseCode. The caller becomes its
// admin and first member and the group starts out accepting members.
func (s *Service) CreateGroup(ctx context.Context, sessionToken, courseCode string) (GroupDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return GroupDetail{}, err
	}
	if err := validate.Struct(groupInput{CourseCode: courseCode}); err != nil {
		return GroupDetail{}, errorf(ErrValidation, "%s", err)
	}
	courseCode = strings.TrimSpace(courseCode)

	var out GroupDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		course, err := tx.CourseByCode(ctx, courseCode)
		if err != nil {
			return err
		}
		g := Group{CourseID: course.ID, AdminID: user.ID, AcceptingMembers: true}
		if err := tx.CreateGroup(ctx, &g); err != nil {
			return err
		}
		if err := tx.AddMember(ctx, g.ID, user.ID); err != nil {
			return err
		}
		out, err = groupDetail(ctx, tx, g)
		return err
	})
	if err != nil {
		return GroupDetail{}, err
	}

	audit.Record(ctx, "group.created", map[string]any{"group_id": out.ID, "course_code": out.Course.Code})
	return out, nil
}

// GetGroup returns a group with its member roll. Group rosters are public.
func (s *Service) GetGroup(ctx context.Context, groupID int64) (GroupDetail, error) {
	var out GroupDetail
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		g, err := tx.GroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		out, err = groupDetail(ctx, tx, g)
		return err
	})
	return out, err
}

// ListGroups returns all groups, or those of courseCode when it is set.
func (s *Service) ListGroups(ctx context.Context, courseCode string) ([]GroupDetail, error) {
	courseCode = strings.TrimSpace(courseCode)
	var out []GroupDetail
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var courseID int64
		if courseCode != "" {
			c, err := tx.CourseByCode(ctx, courseCode)
			if err != nil {
				return err
			}
			courseID = c.ID
		}
		groups, err := tx.ListGroups(ctx, courseID)
		if err != nil {
			return err
		}
		out, err = groupDetails(ctx, tx, groups)
		return err
	})
	return out, err
}

// MyGroups lists the groups userID belongs to. Only that user may ask.
func (s *Service) MyGroups(ctx context.Context, sessionToken string, userID int64) ([]GroupDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if user.ID != userID {
		return nil, errorf(ErrForbidden, "cannot view another user's groups")
	}
	var out []GroupDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		groups, err := tx.GroupsForUser(ctx, userID)
		if err != nil {
			return err
		}
		out, err = groupDetails(ctx, tx, groups)
		return err
	})
	return out, err
}

// SetAccepting toggles whether the group takes new join requests.
// Requests already pending are left alone.
func (s *Service) SetAccepting(ctx context.Context, sessionToken string, groupID int64, accepting bool) (GroupDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return GroupDetail{}, err
	}
	var out GroupDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		g, err := tx.GroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if err := require(ctx, tx, user.ID, g, RoleAdmin); err != nil {
			return err
		}
		if err := tx.SetAccepting(ctx, g.ID, accepting); err != nil {
			return err
		}
		g.AcceptingMembers = accepting
		out, err = groupDetail(ctx, tx, g)
		return err
	})
	if err != nil {
		return GroupDetail{}, err
	}

	audit.Record(ctx, "group.accepting_changed", map[string]any{"group_id": groupID, "accepting": accepting})
	return out, nil
}

// CreateRequest files a pending join request for the caller.
func (s *Service) CreateRequest(ctx context.Context, sessionToken string, groupID int64) (RequestDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return RequestDetail{}, err
	}
	var out RequestDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		g, err := tx.GroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if !g.AcceptingMembers {
			return errorf(ErrConflict, "group is not accepting members")
		}
		role, err := Authorize(ctx, tx, user.ID, g)
		if err != nil {
			return err
		}
		switch role {
		case RoleAdmin:
			return errorf(ErrConflict, "you are the admin of this group")
		case RoleMember:
			return errorf(ErrConflict, "already a member of this group")
		}
		exists, err := tx.HasRequest(ctx, g.ID, user.ID)
		if err != nil {
			return err
		}
		if exists {
			return errorf(ErrConflict, "request already exists")
		}
		r := JoinRequest{GroupID: g.ID, UserID: user.ID, Status: StatusPending}
		if err := tx.CreateRequest(ctx, &r); err != nil {
			return err
		}
		out, err = requestDetail(ctx, tx, r)
		return err
	})
	if err != nil {
		return RequestDetail{}, err
	}

	obs.JoinRequests.WithLabelValues("submitted").Inc()
	audit.Record(ctx, "request.created", map[string]any{"request_id": out.ID, "group_id": groupID})
	return out, nil
}

// ResolveRequest approves or denies a pending request. Approval adds the
// requester to the group in the same transaction as the status change.
func (s *Service) ResolveRequest(ctx context.Context, sessionToken string, requestID int64, approve bool) (RequestDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return RequestDetail{}, err
	}
	status := StatusDenied
	if approve {
		status = StatusAccepted
	}

	var out RequestDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		r, err := tx.RequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		g, err := tx.GroupByID(ctx, r.GroupID)
		if err != nil {
			return err
		}
		if r.Status.Resolved() {
			return errorf(ErrConflict, "request already %s", r.Status)
		}
		if err := require(ctx, tx, user.ID, g, RoleAdmin); err != nil {
			return err
		}
		if err := tx.ResolveRequest(ctx, r.ID, status); err != nil {
			return err
		}
		if approve {
			if err := tx.AddMember(ctx, g.ID, r.UserID); err != nil {
				return err
			}
		}
		r.Status = status
		out, err = requestDetail(ctx, tx, r)
		return err
	})
	if err != nil {
		return RequestDetail{}, err
	}

	obs.JoinRequests.WithLabelValues(status.String()).Inc()
	audit.Record(ctx, "request.resolved", map[string]any{
		"request_id": requestID,
		"group_id":   out.GroupID,
		"status":     status.String(),
	})
	return out, nil
}

// ListRequests returns every request of the group, whatever its status.
func (s *Service) ListRequests(ctx context.Context, sessionToken string, groupID int64) ([]RequestDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	var out []RequestDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		g, err := tx.GroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if err := require(ctx, tx, user.ID, g, RoleMember); err != nil {
			return err
		}
		reqs, err := tx.ListRequests(ctx, g.ID)
		if err != nil {
			return err
		}
		out = make([]RequestDetail, 0, len(reqs))
		for _, r := range reqs {
			d, err := requestDetail(ctx, tx, r)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	return out, err
}

// GetRequest returns one request to members of its group or to the requester.
func (s *Service) GetRequest(ctx context.Context, sessionToken string, requestID int64) (RequestDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return RequestDetail{}, err
	}
	var out RequestDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		r, err := tx.RequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		if r.UserID != user.ID {
			g, err := tx.GroupByID(ctx, r.GroupID)
			if err != nil {
				return err
			}
			if err := require(ctx, tx, user.ID, g, RoleMember); err != nil {
				return err
			}
		}
		out, err = requestDetail(ctx, tx, r)
		return err
	})
	return out, err
}
