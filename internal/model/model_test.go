package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseProjects(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  []string
	}{
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"single", "groupme", []string{"groupme"}},
		{"comma separated", "groupme, discord", []string{"groupme", "discord"}},
		{"trims and drops blanks", " groupme ,, discord ", []string{"groupme", "discord"}},
		{"dedupes case-insensitively", "GroupMe,groupme,discord", []string{"GroupMe", "discord"}},
		{"wildcard collapses", "groupme,*,discord", []string{"*"}},
		{"string slice", []string{"a", "b"}, []string{"a", "b"}},
		{"interface slice", []interface{}{"a", 7, "b"}, []string{"a", "b"}},
		{"unsupported type", 42, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseProjects(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseProjects(%v) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseProjects(%v)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestProjectsUnrestricted(t *testing.T) {
	if !(Projects{}).Unrestricted() {
		t.Error("empty scope should be unrestricted")
	}
	if !(Projects{"*"}).Unrestricted() {
		t.Error("wildcard scope should be unrestricted")
	}
	if (Projects{"groupme"}).Unrestricted() {
		t.Error("named scope should be restricted")
	}
}

func TestProjectsContains(t *testing.T) {
	p := Projects{"GroupMe", "discord"}
	if !p.Contains("groupme") {
		t.Error("Contains should match case-insensitively")
	}
	if p.Contains("slack") {
		t.Error("Contains matched an absent project")
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := map[string]string{
		"admin":    RoleAdmin,
		"Service":  RoleService,
		" USER ":   RoleUser,
		"operator": RoleUser,
		"":         RoleUser,
	}
	for in, want := range tests {
		if got := NormalizeRole(in); got != want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCredentialJSONNeverCarriesHash(t *testing.T) {
	cred := Credential{Name: "bot", SecretHash: "$argon2id$supersecret", Role: RoleUser}
	raw, err := json.Marshal(cred)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "supersecret") {
		t.Errorf("marshaled credential leaks the digest: %s", raw)
	}
}

func TestAdminCredentialJSONNeverCarriesHash(t *testing.T) {
	admin := AdminCredential{Name: "admin", SecretHash: "$argon2id$supersecret"}
	raw, err := json.Marshal(admin)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "supersecret") {
		t.Errorf("marshaled admin credential leaks the digest: %s", raw)
	}
}
