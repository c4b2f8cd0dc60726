package profiles

import "testing"

func TestPassthroughWrapsRawAsMessage(t *testing.T) {
	p, err := Lookup("passthrough")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, err := p.Normalize("hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["message"] != "hello world" {
		t.Fatalf("expected message field, got %v", doc)
	}
}

func TestJSONAutoParsesObject(t *testing.T) {
	p, _ := Lookup("json_auto")
	doc, err := p.Normalize(`{"level":"info","msg":"started"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["level"] != "info" || doc["msg"] != "started" {
		t.Fatalf("expected parsed object fields, got %v", doc)
	}
}

func TestJSONAutoFallsBackOnNonBraceInput(t *testing.T) {
	// Only input starting with "{" is even attempted as JSON — a bare
	// number or array goes straight to the message fallback, matching the
	// reference profile's leading-brace check.
	p, _ := Lookup("json_auto")
	doc, err := p.Normalize(`42`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["message"] != "42" {
		t.Fatalf("expected message fallback, got %v", doc)
	}
}

func TestJSONAutoFallsBackOnUnparseableInput(t *testing.T) {
	p, _ := Lookup("json_auto")
	doc, err := p.Normalize("not json at all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["message"] != "not json at all" {
		t.Fatalf("expected message fallback, got %v", doc)
	}
}

func TestKvPairsParsesTokens(t *testing.T) {
	p, _ := Lookup("kv_pairs")
	doc, err := p.Normalize("level=info user=alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["level"] != "info" || doc["user"] != "alice" {
		t.Fatalf("expected parsed kv pairs, got %v", doc)
	}
}

func TestKvPairsFallsBackWhenNoTokensParse(t *testing.T) {
	p, _ := Lookup("kv_pairs")
	doc, err := p.Normalize("just a plain sentence")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["message"] != "just a plain sentence" {
		t.Fatalf("expected message fallback, got %v", doc)
	}
}

func TestLookupUnknownProfileFails(t *testing.T) {
	if _, err := Lookup("does_not_exist"); err == nil {
		t.Fatal("expected an error for an unregistered profile")
	}
}
