package campus

import (
	"context"
	"strings"

	"studyhall.org/internal/audit"
	"studyhall.org/internal/validate"
)

type courseInput struct {
	Title string `json:"course_title" validate:"required,notblank"`
	Code  string `json:"course_code" validate:"required,notblank"`
}

// CreateCourse registers a course owned by the caller. Codes are unique.
func (s *Service) CreateCourse(ctx context.Context, sessionToken, title, code string) (CourseDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return CourseDetail{}, err
	}
	in := courseInput{Title: title, Code: code}
	if err := validate.Struct(in); err != nil {
		return CourseDetail{}, errorf(ErrValidation, "%s", err)
	}

	c := Course{Title: strings.TrimSpace(title), Code: strings.TrimSpace(code), CreatorID: user.ID}
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.CourseByCode(ctx, code); err == nil {
			return errorf(ErrConflict, "course %s already exists", code)
		} else if !isNotFound(err) {
			return err
		}
		return tx.CreateCourse(ctx, &c)
	})
	if err != nil {
		return CourseDetail{}, err
	}

	audit.Record(ctx, "course.created", map[string]any{"course_id": c.ID, "course_code": c.Code})
	return CourseDetail{Course: c, Groups: []Group{}}, nil
}

// ListCourses returns every course with its groups.
func (s *Service) ListCourses(ctx context.Context) ([]CourseDetail, error) {
	var out []CourseDetail
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		courses, err := tx.ListCourses(ctx)
		if err != nil {
			return err
		}
		out = make([]CourseDetail, 0, len(courses))
		for _, c := range courses {
			groups, err := tx.ListGroups(ctx, c.ID)
			if err != nil {
				return err
			}
			out = append(out, CourseDetail{Course: c, Groups: groups})
		}
		return nil
	})
	return out, err
}

// GetCourse returns one course with its groups.
func (s *Service) GetCourse(ctx context.Context, courseID int64) (CourseDetail, error) {
	var out CourseDetail
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.CourseByID(ctx, courseID)
		if err != nil {
			return err
		}
		groups, err := tx.ListGroups(ctx, c.ID)
		if err != nil {
			return err
		}
		out = CourseDetail{Course: c, Groups: groups}
		return nil
	})
	return out, err
}

// DeleteCourse removes a course together with its groups. The caller must
// administer every group of the course, so nobody loses a group they do
// not own. A course with no groups may only be deleted by its creator.
func (s *Service) DeleteCourse(ctx context.Context, sessionToken string, courseID int64) error {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.CourseByID(ctx, courseID)
		if err != nil {
			return err
		}
		groups, err := tx.ListGroups(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(groups) == 0 && c.CreatorID != user.ID {
			return errorf(ErrForbidden, "only the course creator may delete a course without groups")
		}
		for _, g := range groups {
			if g.AdminID != user.ID {
				return errorf(ErrForbidden, "course has groups administered by other users")
			}
		}
		return tx.DeleteCourse(ctx, c.ID)
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, "course.deleted", map[string]any{"course_id": courseID})
	return nil
}
