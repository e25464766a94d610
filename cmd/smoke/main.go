// Command smoke runs the join-and-attend walkthrough against a live API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	flag "github.com/spf13/pflag"

	"studyhall.org/internal/ids"
)

type client struct {
	base string
	http *http.Client
}

func (c *client) call(ctx context.Context, method, path, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) waitReady(ctx context.Context) error {
	b := retry.WithMaxRetries(10, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.call(ctx, http.MethodGet, "/readyz", "", nil, nil); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

type creds struct {
	SessionToken string `json:"session_token"`
}

type entity struct {
	ID int64 `json:"id"`
}

func main() {
	base := flag.String("base", envOr("STUDYHALL_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := &client{base: *base, http: &http.Client{Timeout: 5 * time.Second}}
	if err := c.waitReady(ctx); err != nil {
		log.Fatalf("api not ready at %s: %v", *base, err)
	}

	// A unique suffix keeps repeated runs against one database independent.
	suffix := ids.New()[20:]
	code := "SMK " + suffix

	register := func(netID string) string {
		var cr creds
		if err := c.call(ctx, http.MethodPost, "/register/", "", map[string]any{
			"net_id": netID, "name": netID, "password": "smoke-" + suffix,
		}, &cr); err != nil {
			log.Fatalf("register %s: %v", netID, err)
		}
		return cr.SessionToken
	}
	admin := register("adm" + suffix)
	student := register("stu" + suffix)

	must := func(err error, what string) {
		if err != nil {
			log.Fatalf("%s: %v", what, err)
		}
	}

	must(c.call(ctx, http.MethodPost, "/courses/", admin, map[string]any{"course_title": "Smoke Test", "course_code": code}, nil), "create course")
	var group entity
	must(c.call(ctx, http.MethodPost, "/groups/", admin, map[string]any{"course_code": code}, &group), "create group")

	var req entity
	must(c.call(ctx, http.MethodPost, fmt.Sprintf("/groups/%d/requests/", group.ID), student, nil, &req), "request to join")
	must(c.call(ctx, http.MethodPost, fmt.Sprintf("/requests/%d/", req.ID), admin, map[string]any{"response": true}, nil), "approve")

	now := time.Now().UTC().Add(24 * time.Hour)
	var event entity
	must(c.call(ctx, http.MethodPost, fmt.Sprintf("/groups/%d/events/", group.ID), student, map[string]any{
		"description": "smoke review", "location": "library",
		"year": now.Year(), "month": int(now.Month()), "day": now.Day(), "hour": 18, "minute": 0,
	}, &event), "create event")

	var joined struct {
		Attendees []entity `json:"attendees"`
	}
	must(c.call(ctx, http.MethodPost, fmt.Sprintf("/events/%d/join/", event.ID), admin, nil, &joined), "join event")
	if len(joined.Attendees) != 2 {
		log.Fatalf("expected 2 attendees, got %d", len(joined.Attendees))
	}

	fmt.Printf("smoke test passed: group=%d event=%d\n", group.ID, event.ID)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
