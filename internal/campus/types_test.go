package campus

import (
	"encoding/json"
	"testing"
)

func TestStatusJSONIsNullableBool(t *testing.T) {
	cases := map[Status]string{
		StatusPending:  "null",
		StatusAccepted: "true",
		StatusDenied:   "false",
	}
	for s, want := range cases {
		got, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %s: %v", s, err)
		}
		if string(got) != want {
			t.Fatalf("%s marshals to %s, want %s", s, got, want)
		}
		if back := StatusFromBool(s.Bool()); back != s {
			t.Fatalf("%s does not survive the bool round trip", s)
		}
	}
}

func TestRoleOrdering(t *testing.T) {
	if !(RoleDenied < RoleMember && RoleMember < RoleAdmin) {
		t.Fatal("roles must be ordered denied < member < admin")
	}
}
