package signals

import "testing"

func TestContentHashIgnoresKeyOrderAndWhitespace(t *testing.T) {
	a := []byte(`{"b": 1, "a": {"y": [1, 2], "x": true}}`)
	b := []byte(`{
		"a": {"x": true, "y": [1, 2]},
		"b": 1
	}`)

	hashA, err := ContentHash(a)
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hashB, err := ContentHash(b)
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if hashA != hashB {
		t.Fatalf("expected equal hashes, got %s and %s", hashA, hashB)
	}
}

func TestContentHashDistinguishesValues(t *testing.T) {
	hashA, err := ContentHash([]byte(`{"email":"a@example.com"}`))
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hashB, err := ContentHash([]byte(`{"email":"b@example.com"}`))
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if hashA == hashB {
		t.Fatal("different payloads must not collide")
	}
}

func TestContentHashPreservesArrayOrder(t *testing.T) {
	hashA, err := ContentHash([]byte(`{"rows":[1,2]}`))
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hashB, err := ContentHash([]byte(`{"rows":[2,1]}`))
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if hashA == hashB {
		t.Fatal("array order is significant and must change the hash")
	}
}

func TestContentHashPreservesNumberPrecision(t *testing.T) {
	hashA, err := ContentHash([]byte(`{"n": 10000000000000001}`))
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hashB, err := ContentHash([]byte(`{"n": 10000000000000002}`))
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if hashA == hashB {
		t.Fatal("large integers must not be collapsed by float conversion")
	}
}

func TestContentHashRejectsInvalidJSON(t *testing.T) {
	if _, err := ContentHash([]byte(`{"open":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
