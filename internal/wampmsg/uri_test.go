package wampmsg

import "testing"

func TestURIValidatorLoose(t *testing.T) {
	v := URIValidator{Strict: false}

	valid := []string{"myapp.TOPIC-", "a", "a.b.c", "com.example.foo_bar"}
	for _, uri := range valid {
		if !v.Valid(uri) {
			t.Errorf("expected %q to be valid under loose grammar", uri)
		}
	}

	invalid := []string{"", "a..b", "a. b", "a.", ".a", "has space"}
	for _, uri := range invalid {
		if v.Valid(uri) {
			t.Errorf("expected %q to be invalid under loose grammar", uri)
		}
	}
}

func TestURIValidatorStrict(t *testing.T) {
	v := URIValidator{Strict: true}

	valid := []string{"com.example.foo_bar", "a", "a.b.c", "abc_123.def"}
	for _, uri := range valid {
		if !v.Valid(uri) {
			t.Errorf("expected %q to be valid under strict grammar", uri)
		}
	}

	invalid := []string{"", "Com.Example", "a..b", "a-b.c", "a.B"}
	for _, uri := range invalid {
		if v.Valid(uri) {
			t.Errorf("expected %q to be invalid under strict grammar", uri)
		}
	}
}
