package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("STF-001", RoleStaff, "polytechnic", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	claims, err := Parse(pair.AccessToken, "test-key", "polytechnic")
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "STF-001" || claims.Role != RoleStaff {
		t.Fatalf("got claims %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("STF-001", RoleAdmin, "polytechnic", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, "other-key", "polytechnic"); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	pair, err := Issue("STF-001", RoleAdmin, "someone-else", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "polytechnic"); err == nil {
		t.Fatal("expected issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("STF-001", RoleStaff, "polytechnic", "test-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "polytechnic"); err == nil {
		t.Fatal("expected expiry error")
	}
}
