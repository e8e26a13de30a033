package types

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
)

func TestEqualDN(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"dc=example,dc=org", "DC=Example,DC=ORG", true},
		{"ou=people,dc=example,dc=org", "OU=People, DC=example, DC=org", true},
		{"ou=people,dc=example,dc=org", "ou=groups,dc=example,dc=org", false},
		{"not a dn", "NOT A DN", true},
		{"not a dn", "dc=example", false},
	}

	for _, tt := range tests {
		if got := EqualDN(tt.a, tt.b); got != tt.want {
			t.Errorf("EqualDN(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDNStringValue_StringSemanticEquals(t *testing.T) {
	tests := []struct {
		name     string
		current  DNStringValue
		proposed DNStringValue
		want     bool
	}{
		{name: "case differs", current: DNString("DC=Example,DC=org"), proposed: DNString("dc=example,dc=org"), want: true},
		{name: "different entries", current: DNString("ou=a,dc=example,dc=org"), proposed: DNString("ou=b,dc=example,dc=org"), want: false},
		{name: "both empty", current: DNString(""), proposed: DNString(""), want: true},
		{name: "null and value", current: DNStringNull(), proposed: DNString("dc=example,dc=org"), want: false},
		{name: "both unknown", current: DNStringUnknown(), proposed: DNStringUnknown(), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags := tt.current.StringSemanticEquals(t.Context(), tt.proposed)
			if diags.HasError() {
				t.Fatalf("unexpected diagnostics: %v", diags)
			}
			if got != tt.want {
				t.Errorf("StringSemanticEquals() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDNStringValue_SemanticEqualsWrongType(t *testing.T) {
	_, diags := DNString("dc=example,dc=org").StringSemanticEquals(t.Context(), basetypes.NewStringValue("dc=example,dc=org"))
	if !diags.HasError() {
		t.Error("expected an error for a plain string value")
	}
}

func TestDNStringType_ValueFromTerraform(t *testing.T) {
	value, err := DNStringType{}.ValueFromTerraform(t.Context(), tftypes.NewValue(tftypes.String, "dc=example,dc=org"))
	if err != nil {
		t.Fatalf("ValueFromTerraform() error: %v", err)
	}

	dn, ok := value.(DNStringValue)
	if !ok {
		t.Fatalf("expected DNStringValue, got %T", value)
	}
	if dn.ValueString() != "dc=example,dc=org" {
		t.Errorf("ValueString() = %q", dn.ValueString())
	}
	if !(DNStringType{}).Equal(dn.Type(t.Context())) {
		t.Error("value type should be DNStringType")
	}
}

func TestDNStringValue_ValueDN(t *testing.T) {
	dn, err := DNString("ou=People, dc=example,dc=org").ValueDN()
	if err != nil {
		t.Fatalf("ValueDN() error: %v", err)
	}
	if len(dn.RDNs) != 3 {
		t.Errorf("expected 3 RDNs, got %d", len(dn.RDNs))
	}

	for _, v := range []DNStringValue{DNString(""), DNStringNull(), DNStringUnknown()} {
		dn, err := v.ValueDN()
		if err != nil || len(dn.RDNs) != 0 {
			t.Errorf("ValueDN(%s) = %v, %v; want the root DN", v, dn, err)
		}
	}

	if _, err := DNString("not a dn").ValueDN(); err == nil {
		t.Error("expected a parse error")
	}
}

func TestDNStringValue_SemanticEqualsEmpty(t *testing.T) {
	got, _ := DNString("").StringSemanticEquals(t.Context(), DNString("dc=example,dc=org"))
	if got {
		t.Error("an empty DN must differ from a non-empty one")
	}
}
