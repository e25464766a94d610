package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"studyhall.org/internal/auth"
	"studyhall.org/internal/campus"
	"studyhall.org/internal/store/memory"
)

type testServer struct {
	t *testing.T
	h http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	users, err := auth.NewService(store, auth.WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	svc, err := campus.NewService(store, users)
	if err != nil {
		t.Fatalf("campus service: %v", err)
	}
	api := New(ReadyProbe{}, "test", users, svc, Options{RateBurst: 1000, RatePerSecond: 1000})
	return &testServer{t: t, h: api.Handler()}
}

func (s *testServer) do(method, path, token string, body any) (int, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:4000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)

	var out map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			s.t.Fatalf("%s %s: decode response %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr.Code, out
}

func (s *testServer) must(want int, method, path, token string, body any) map[string]any {
	s.t.Helper()
	code, out := s.do(method, path, token, body)
	if code != want {
		s.t.Fatalf("%s %s = %d (%v), want %d", method, path, code, out, want)
	}
	return out
}

func (s *testServer) register(netID string) (int64, string) {
	s.t.Helper()
	creds := s.must(http.StatusCreated, http.MethodPost, "/register/", "", map[string]any{
		"net_id": netID, "name": "Student " + netID, "password": "pw-" + netID,
	})
	token, _ := creds["session_token"].(string)
	if token == "" || creds["update_token"] == "" || creds["session_expiration"] == nil {
		s.t.Fatalf("incomplete credentials: %v", creds)
	}
	user := s.must(http.StatusOK, http.MethodGet, "/users/"+netID+"/", "", nil)
	return int64(user["id"].(float64)), token
}

func idOf(t *testing.T, m map[string]any) int64 {
	t.Helper()
	id, ok := m["id"].(float64)
	if !ok {
		t.Fatalf("missing id in %v", m)
	}
	return int64(id)
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t)
	out := s.must(http.StatusOK, http.MethodGet, "/healthz", "", nil)
	if out["status"] != "ok" || out["service"] != serviceName {
		t.Fatalf("unexpected healthz body: %v", out)
	}
	s.must(http.StatusOK, http.MethodGet, "/readyz", "", nil)
	out = s.must(http.StatusNotFound, http.MethodGet, "/nope/", "", nil)
	if out["request_id"] == nil {
		t.Fatalf("expected request_id on error body: %v", out)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.register("abc1")

	code, _ := s.do(http.MethodPost, "/register/", "", map[string]any{"net_id": "abc1", "name": "Again", "password": "x"})
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate register = %d, want 400", code)
	}
	code, _ = s.do(http.MethodPost, "/login/", "", map[string]any{"net_id": "abc1", "password": "wrong"})
	if code != http.StatusBadRequest {
		t.Fatalf("bad password = %d, want 400", code)
	}

	creds := s.must(http.StatusOK, http.MethodPost, "/login/", "", map[string]any{"net_id": "abc1", "password": "pw-abc1"})
	session := creds["session_token"].(string)
	update := creds["update_token"].(string)

	renewed := s.must(http.StatusOK, http.MethodPost, "/session/", update, nil)
	if renewed["session_token"] == session {
		t.Fatal("renewal must rotate the session token")
	}
	code, _ = s.do(http.MethodPost, "/session/", update, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("reused update token = %d, want 400", code)
	}

	fresh := renewed["session_token"].(string)
	s.must(http.StatusOK, http.MethodPost, "/logout/", fresh, nil)
	code, _ = s.do(http.MethodPost, "/logout/", fresh, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("logout twice = %d, want 400", code)
	}
	code, _ = s.do(http.MethodPost, "/courses/", fresh, map[string]any{"course_title": "X", "course_code": "X 1"})
	if code != http.StatusBadRequest {
		t.Fatalf("expired session = %d, want 400", code)
	}

	users := s.must(http.StatusOK, http.MethodGet, "/users/", "", nil)
	if list, _ := users["users"].([]any); len(list) != 1 {
		t.Fatalf("users = %v", users)
	}
	s.must(http.StatusNotFound, http.MethodGet, "/users/zzz9/", "", nil)
}

func TestMissingBearerToken(t *testing.T) {
	s := newTestServer(t)
	out := s.must(http.StatusBadRequest, http.MethodPost, "/courses/", "", map[string]any{"course_title": "X", "course_code": "X 1"})
	if out["error"] == nil {
		t.Fatalf("expected error body: %v", out)
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)
	s.must(http.StatusBadRequest, http.MethodPost, "/register/", "", map[string]any{
		"net_id": "abc1", "name": "A", "password": "pw", "admin": true,
	})
}

func TestStudyGroupFlow(t *testing.T) {
	s := newTestServer(t)
	adminID, admin := s.register("adm1")
	studentID, student := s.register("stu2")

	course := s.must(http.StatusCreated, http.MethodPost, "/courses/", admin, map[string]any{
		"course_title": "Operating Systems", "course_code": "CS 4410",
	})
	courseID := idOf(t, course)
	s.must(http.StatusBadRequest, http.MethodPost, "/courses/", admin, map[string]any{
		"course_title": "Dup", "course_code": "CS 4410",
	})

	group := s.must(http.StatusCreated, http.MethodPost, "/groups/", admin, map[string]any{"course_code": "CS 4410"})
	groupID := idOf(t, group)
	if group["accepting_members"] != true {
		t.Fatalf("new group should accept members: %v", group)
	}
	s.must(http.StatusNotFound, http.MethodPost, "/groups/", admin, map[string]any{"course_code": "NOPE 1"})

	listed := s.must(http.StatusOK, http.MethodGet, "/groups/?course_code=CS+4410", "", nil)
	if gs, _ := listed["groups"].([]any); len(gs) != 1 {
		t.Fatalf("groups = %v", listed)
	}

	// Non-members cannot see events.
	s.must(http.StatusBadRequest, http.MethodGet, fmt.Sprintf("/groups/%d/events/", groupID), student, nil)

	req := s.must(http.StatusCreated, http.MethodPost, fmt.Sprintf("/groups/%d/requests/", groupID), student, nil)
	reqID := idOf(t, req)
	if req["status"] != nil {
		t.Fatalf("new request should be pending: %v", req)
	}
	s.must(http.StatusBadRequest, http.MethodPost, fmt.Sprintf("/groups/%d/requests/", groupID), student, nil)
	s.must(http.StatusBadRequest, http.MethodPost, fmt.Sprintf("/requests/%d/", reqID), student, map[string]any{"response": true})

	pending := s.must(http.StatusOK, http.MethodGet, fmt.Sprintf("/groups/%d/requests/", groupID), admin, nil)
	if rs, _ := pending["requests"].([]any); len(rs) != 1 {
		t.Fatalf("requests = %v", pending)
	}

	resolved := s.must(http.StatusOK, http.MethodPost, fmt.Sprintf("/requests/%d/", reqID), admin, map[string]any{"response": true})
	if resolved["status"] != true {
		t.Fatalf("resolved status = %v", resolved["status"])
	}
	s.must(http.StatusBadRequest, http.MethodPost, fmt.Sprintf("/requests/%d/", reqID), admin, map[string]any{"response": false})
	s.must(http.StatusOK, http.MethodGet, fmt.Sprintf("/requests/%d/", reqID), student, nil)

	g := s.must(http.StatusOK, http.MethodGet, fmt.Sprintf("/groups/%d/", groupID), "", nil)
	if ms, _ := g["members"].([]any); len(ms) != 2 {
		t.Fatalf("members = %v", g["members"])
	}

	event := s.must(http.StatusCreated, http.MethodPost, fmt.Sprintf("/groups/%d/events/", groupID), student, map[string]any{
		"description": "Prelim review", "location": "Gates G01",
		"year": 2024, "month": 10, "day": 3, "hour": 19, "minute": 30,
	})
	eventID := idOf(t, event)
	if event["time"] != "2024-10-03T19:30:00Z" {
		t.Fatalf("event time = %v", event["time"])
	}
	s.must(http.StatusBadRequest, http.MethodPost, fmt.Sprintf("/groups/%d/events/", groupID), student, map[string]any{
		"description": "Bad", "location": "Nowhere",
		"year": 2024, "month": 2, "day": 30, "hour": 10, "minute": 0,
	})

	joined := s.must(http.StatusOK, http.MethodPost, fmt.Sprintf("/events/%d/join/", eventID), admin, nil)
	if as, _ := joined["attendees"].([]any); len(as) != 2 {
		t.Fatalf("attendees = %v", joined["attendees"])
	}

	mine := s.must(http.StatusOK, http.MethodGet, fmt.Sprintf("/users/%d/events/", adminID), admin, nil)
	if es, _ := mine["my_events"].([]any); len(es) != 1 {
		t.Fatalf("my_events = %v", mine)
	}
	s.must(http.StatusBadRequest, http.MethodGet, fmt.Sprintf("/users/%d/groups/", studentID), admin, nil)
	groups := s.must(http.StatusOK, http.MethodGet, fmt.Sprintf("/users/%d/groups/", studentID), student, nil)
	if gs, _ := groups["my_groups"].([]any); len(gs) != 1 {
		t.Fatalf("my_groups = %v", groups)
	}

	s.must(http.StatusOK, http.MethodPost, fmt.Sprintf("/groups/%d/accepting/", groupID), admin, map[string]any{"accepting_members": false})
	s.must(http.StatusBadRequest, http.MethodPost, fmt.Sprintf("/groups/%d/accepting/", groupID), student, map[string]any{"accepting_members": true})

	s.must(http.StatusOK, http.MethodDelete, fmt.Sprintf("/events/%d/", eventID), student, nil)
	s.must(http.StatusNotFound, http.MethodGet, fmt.Sprintf("/events/%d/", eventID), admin, nil)

	s.must(http.StatusBadRequest, http.MethodDelete, fmt.Sprintf("/courses/%d/", courseID), student, nil)
	s.must(http.StatusOK, http.MethodDelete, fmt.Sprintf("/courses/%d/", courseID), admin, nil)
	s.must(http.StatusNotFound, http.MethodGet, fmt.Sprintf("/groups/%d/", groupID), "", nil)
}

func TestRequestBodiesAreValidated(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.register("adm1")
	s.must(http.StatusCreated, http.MethodPost, "/courses/", admin, map[string]any{
		"course_title": "Algorithms", "course_code": "CS 4820",
	})
	group := s.must(http.StatusCreated, http.MethodPost, "/groups/", admin, map[string]any{"course_code": "CS 4820"})
	eventsPath := fmt.Sprintf("/groups/%d/events/", idOf(t, group))

	event := func(overrides map[string]any) map[string]any {
		body := map[string]any{
			"description": "Review", "location": "Uris Hall",
			"year": 2024, "month": 11, "day": 5, "hour": 0, "minute": 0,
		}
		for k, v := range overrides {
			if v == nil {
				delete(body, k)
				continue
			}
			body[k] = v
		}
		return body
	}

	cases := []struct {
		name string
		path string
		body map[string]any
		want string
	}{
		{"blank net_id", "/register/", map[string]any{"net_id": "  ", "name": "A", "password": "pw"}, "net_id is required"},
		{"missing password", "/login/", map[string]any{"net_id": "adm1"}, "password is required"},
		{"blank course code", "/groups/", map[string]any{"course_code": " "}, "course_code is required"},
		{"missing minute", eventsPath, event(map[string]any{"minute": nil}), "minute is required"},
		{"month 13", eventsPath, event(map[string]any{"month": 13}), "month must be at most 12"},
		{"hour 24", eventsPath, event(map[string]any{"hour": 24}), "hour must be at most 23"},
		{"february 30", eventsPath, event(map[string]any{"month": 2, "day": 30}), "not a calendar date"},
		{"missing accepting flag", fmt.Sprintf("/groups/%d/accepting/", idOf(t, group)), map[string]any{}, "accepting_members is required"},
	}
	for _, tc := range cases {
		out := s.must(http.StatusBadRequest, http.MethodPost, tc.path, admin, tc.body)
		msg, _ := out["error"].(string)
		if !strings.Contains(msg, tc.want) {
			t.Fatalf("%s: error = %q, want it to mention %q", tc.name, msg, tc.want)
		}
	}

	// Midnight is a real time, not a missing field.
	s.must(http.StatusCreated, http.MethodPost, eventsPath, admin, event(nil))
}
