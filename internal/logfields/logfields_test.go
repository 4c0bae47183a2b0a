package logfields

import (
	"errors"
	"testing"
)

func TestAttrs(t *testing.T) {
	cases := []struct {
		key  string
		got  string
		want string
	}{
		{KeyRunID, RunID("r1").Value.String(), "r1"},
		{KeyBuildSrc, BuildSrc("api/index.js").Value.String(), "api/index.js"},
		{KeyBuilder, Builder("static").Value.String(), "static"},
		{KeyDeploymentID, DeploymentID("abc-123").Value.String(), "abc-123"},
		{KeyError, Error(errors.New("boom")).Value.String(), "boom"},
		{KeyError, Error(nil).Value.String(), ""},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: got %q want %q", c.key, c.got, c.want)
		}
	}
	if Routes(4).Key != KeyRoutes || Routes(4).Value.Int64() != 4 {
		t.Errorf("unexpected routes attr %v", Routes(4))
	}
}
