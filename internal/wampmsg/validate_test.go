package wampmsg

import "testing"

func TestHelloValidate(t *testing.T) {
	uv := URIValidator{}

	ok := Hello{
		Realm: "akka.wamp.realm",
		Details: Dict{
			"roles": map[string]interface{}{"publisher": map[string]interface{}{}},
		},
	}
	if err := ok.Validate(uv); err != nil {
		t.Fatalf("expected valid HELLO, got %v", err)
	}

	badRole := Hello{
		Realm: "akka.wamp.realm",
		Details: Dict{
			"roles": map[string]interface{}{"supervisor": map[string]interface{}{}},
		},
	}
	if err := badRole.Validate(uv); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}

	noRoles := Hello{Realm: "akka.wamp.realm", Details: Dict{}}
	if err := noRoles.Validate(uv); err == nil {
		t.Fatal("expected missing roles to be rejected")
	}

	badURI := Hello{
		Realm:   "invalid..realm",
		Details: Dict{"roles": map[string]interface{}{"caller": map[string]interface{}{}}},
	}
	if err := badURI.Validate(uv); err == nil {
		t.Fatal("expected invalid realm URI to be rejected")
	}
}

func TestIDRangeValidation(t *testing.T) {
	uv := URIValidator{}

	if err := (Welcome{Session: 0}).Validate(uv); err == nil {
		t.Fatal("expected id 0 to be out of range")
	}
	if err := (Welcome{Session: ID(MaxID)}).Validate(uv); err == nil {
		t.Fatal("expected id == 2^53 to be out of range")
	}
	if err := (Welcome{Session: 1}).Validate(uv); err != nil {
		t.Fatalf("expected id 1 to be valid, got %v", err)
	}
}

func TestGoodbyeRequiresValidReasonURI(t *testing.T) {
	uv := URIValidator{}
	if err := (Goodbye{Details: Dict{}, Reason: "invalid..reason"}).Validate(uv); err == nil {
		t.Fatal("expected invalid reason URI to be rejected")
	}
	if err := (Goodbye{Details: Dict{}, Reason: "wamp.error.close_realm"}).Validate(uv); err != nil {
		t.Fatalf("expected valid reason URI to pass, got %v", err)
	}
}
