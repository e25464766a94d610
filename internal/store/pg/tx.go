package pg

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"studyhall.org/internal/campus"
)

type pgTx struct {
	tx *sql.Tx
}

var _ campus.Tx = (*pgTx)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return campus.ErrNotFound
	}
	return err
}

func (t *pgTx) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(&ok)
	return ok, err
}

func (t *pgTx) members(ctx context.Context, query string, arg int64) ([]campus.Member, error) {
	rows, err := t.tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []campus.Member{}
	for rows.Next() {
		var m campus.Member
		if err := rows.Scan(&m.ID, &m.NetID, &m.Name); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *pgTx) Member(ctx context.Context, userID int64) (campus.Member, error) {
	var m campus.Member
	err := t.tx.QueryRowContext(ctx, `select id, net_id, name from users where id = $1`, userID).
		Scan(&m.ID, &m.NetID, &m.Name)
	return m, notFound(err)
}

// --- courses ---

const courseColumns = "id, title, code, creator_id"

func scanCourse(row scanner) (campus.Course, error) {
	var (
		c       campus.Course
		creator sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Code, &creator); err != nil {
		return campus.Course{}, err
	}
	c.CreatorID = creator.Int64
	return c, nil
}

func (t *pgTx) CreateCourse(ctx context.Context, c *campus.Course) error {
	err := t.tx.QueryRowContext(ctx, `
		insert into courses(title, code, creator_id) values ($1, $2, $3) returning id
	`, c.Title, c.Code, nullIfZero(c.CreatorID)).Scan(&c.ID)
	return maybePgError(err, campus.ErrConflict, nil)
}

func (t *pgTx) CourseByID(ctx context.Context, id int64) (campus.Course, error) {
	c, err := scanCourse(t.tx.QueryRowContext(ctx, `select `+courseColumns+` from courses where id = $1`, id))
	return c, notFound(err)
}

func (t *pgTx) CourseByCode(ctx context.Context, code string) (campus.Course, error) {
	c, err := scanCourse(t.tx.QueryRowContext(ctx, `select `+courseColumns+` from courses where code = $1`, code))
	return c, notFound(err)
}

func (t *pgTx) ListCourses(ctx context.Context) ([]campus.Course, error) {
	rows, err := t.tx.QueryContext(ctx, `select `+courseColumns+` from courses order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []campus.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *pgTx) DeleteCourse(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `delete from courses where id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, campus.ErrNotFound)
}

// --- groups ---

const groupColumns = "g.id, g.course_id, g.admin_id, g.accepting_members"

func scanGroups(rows *sql.Rows) ([]campus.Group, error) {
	defer rows.Close()
	out := []campus.Group{}
	for rows.Next() {
		var g campus.Group
		if err := rows.Scan(&g.ID, &g.CourseID, &g.AdminID, &g.AcceptingMembers); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (t *pgTx) CreateGroup(ctx context.Context, g *campus.Group) error {
	err := t.tx.QueryRowContext(ctx, `
		insert into study_groups(course_id, admin_id, accepting_members)
		values ($1, $2, $3)
		returning id
	`, g.CourseID, g.AdminID, g.AcceptingMembers).Scan(&g.ID)
	return maybePgError(err, nil, campus.ErrNotFound)
}

func (t *pgTx) GroupByID(ctx context.Context, id int64) (campus.Group, error) {
	var g campus.Group
	err := t.tx.QueryRowContext(ctx, `
		select `+groupColumns+` from study_groups g where g.id = $1
	`, id).Scan(&g.ID, &g.CourseID, &g.AdminID, &g.AcceptingMembers)
	return g, notFound(err)
}

func (t *pgTx) ListGroups(ctx context.Context, courseID int64) ([]campus.Group, error) {
	q := psql.Select(groupColumns).From("study_groups g").OrderBy("g.id")
	if courseID != 0 {
		q = q.Where(sq.Eq{"g.course_id": courseID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanGroups(rows)
}

func (t *pgTx) GroupsForUser(ctx context.Context, userID int64) ([]campus.Group, error) {
	rows, err := t.tx.QueryContext(ctx, `
		select `+groupColumns+`
		from study_groups g
		join group_members m on m.group_id = g.id
		where m.user_id = $1
		order by g.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanGroups(rows)
}

func (t *pgTx) SetAccepting(ctx context.Context, groupID int64, accepting bool) error {
	res, err := t.tx.ExecContext(ctx, `update study_groups set accepting_members = $2 where id = $1`, groupID, accepting)
	if err != nil {
		return err
	}
	return expectRow(res, campus.ErrNotFound)
}

func (t *pgTx) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		insert into group_members(group_id, user_id) values ($1, $2)
		on conflict (group_id, user_id) do nothing
	`, groupID, userID)
	return maybePgError(err, nil, campus.ErrNotFound)
}

func (t *pgTx) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	return t.exists(ctx, `
		select exists(select 1 from group_members where group_id = $1 and user_id = $2)
	`, groupID, userID)
}

func (t *pgTx) Members(ctx context.Context, groupID int64) ([]campus.Member, error) {
	return t.members(ctx, `
		select u.id, u.net_id, u.name
		from group_members m
		join users u on u.id = m.user_id
		where m.group_id = $1
		order by u.id
	`, groupID)
}

// --- requests ---

func scanRequest(row scanner) (campus.JoinRequest, error) {
	var r campus.JoinRequest
	var status sql.NullBool
	if err := row.Scan(&r.ID, &r.GroupID, &r.UserID, &status); err != nil {
		return campus.JoinRequest{}, notFound(err)
	}
	var b *bool
	if status.Valid {
		b = &status.Bool
	}
	r.Status = campus.StatusFromBool(b)
	return r, nil
}

func (t *pgTx) CreateRequest(ctx context.Context, r *campus.JoinRequest) error {
	err := t.tx.QueryRowContext(ctx, `
		insert into join_requests(group_id, user_id, status)
		values ($1, $2, $3)
		returning id
	`, r.GroupID, r.UserID, r.Status.Bool()).Scan(&r.ID)
	return maybePgError(err, campus.ErrConflict, campus.ErrNotFound)
}

func (t *pgTx) RequestByID(ctx context.Context, id int64) (campus.JoinRequest, error) {
	return scanRequest(t.tx.QueryRowContext(ctx, `
		select id, group_id, user_id, status from join_requests where id = $1 for update
	`, id))
}

func (t *pgTx) HasRequest(ctx context.Context, groupID, userID int64) (bool, error) {
	return t.exists(ctx, `
		select exists(select 1 from join_requests where group_id = $1 and user_id = $2)
	`, groupID, userID)
}

func (t *pgTx) ListRequests(ctx context.Context, groupID int64) ([]campus.JoinRequest, error) {
	rows, err := t.tx.QueryContext(ctx, `
		select id, group_id, user_id, status from join_requests where group_id = $1 order by id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []campus.JoinRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *pgTx) ResolveRequest(ctx context.Context, id int64, status campus.Status) error {
	res, err := t.tx.ExecContext(ctx, `
		update join_requests
		set status = $2, resolved_at = now()
		where id = $1 and status is null
	`, id, status.Bool())
	if err != nil {
		return err
	}
	return expectRow(res, campus.ErrConflict)
}

// --- events ---

const eventColumns = "e.id, e.group_id, e.creator_id, e.description, e.location, e.starts_at"

func scanEvents(rows *sql.Rows) ([]campus.Event, error) {
	defer rows.Close()
	out := []campus.Event{}
	for rows.Next() {
		var e campus.Event
		if err := rows.Scan(&e.ID, &e.GroupID, &e.CreatorID, &e.Description, &e.Location, &e.Time); err != nil {
			return nil, err
		}
		e.Time = e.Time.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *pgTx) CreateEvent(ctx context.Context, e *campus.Event) error {
	err := t.tx.QueryRowContext(ctx, `
		insert into events(group_id, creator_id, description, location, starts_at)
		values ($1, $2, $3, $4, $5)
		returning id
	`, e.GroupID, e.CreatorID, e.Description, e.Location, e.Time).Scan(&e.ID)
	return maybePgError(err, nil, campus.ErrNotFound)
}

func (t *pgTx) EventByID(ctx context.Context, id int64) (campus.Event, error) {
	var e campus.Event
	err := t.tx.QueryRowContext(ctx, `select `+eventColumns+` from events e where e.id = $1`, id).
		Scan(&e.ID, &e.GroupID, &e.CreatorID, &e.Description, &e.Location, &e.Time)
	e.Time = e.Time.UTC()
	return e, notFound(err)
}

func (t *pgTx) ListEvents(ctx context.Context, groupID int64) ([]campus.Event, error) {
	rows, err := t.tx.QueryContext(ctx, `
		select `+eventColumns+` from events e where e.group_id = $1 order by e.id
	`, groupID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (t *pgTx) EventsForUser(ctx context.Context, userID int64) ([]campus.Event, error) {
	rows, err := t.tx.QueryContext(ctx, `
		select `+eventColumns+`
		from events e
		join event_attendees a on a.event_id = e.id
		where a.user_id = $1
		order by e.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (t *pgTx) AddAttendee(ctx context.Context, eventID, userID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		insert into event_attendees(event_id, user_id) values ($1, $2)
		on conflict (event_id, user_id) do nothing
	`, eventID, userID)
	return maybePgError(err, nil, campus.ErrNotFound)
}

func (t *pgTx) Attendees(ctx context.Context, eventID int64) ([]campus.Member, error) {
	return t.members(ctx, `
		select u.id, u.net_id, u.name
		from event_attendees a
		join users u on u.id = a.user_id
		where a.event_id = $1
		order by u.id
	`, eventID)
}

func (t *pgTx) DeleteEvent(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `delete from events where id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, campus.ErrNotFound)
}
