package handlers

import "testing"

func TestComputeSignature(t *testing.T) {
	body := []byte(`{"session_id":"abc","status":"success"}`)
	sig := ComputeSignature("topsecret", body)
	if sig == "" {
		t.Fatal("expected non-empty signature")
	}
	if sig == ComputeSignature("othersecret", body) {
		t.Fatal("different secrets must produce different signatures")
	}
	if sig != ComputeSignature("topsecret", body) {
		t.Fatal("signature must be deterministic")
	}
}

func TestValidateSignature(t *testing.T) {
	body := []byte(`{"session_id":"abc","status":"failed"}`)
	sig := ComputeSignature("topsecret", body)

	if !ValidateSignature("topsecret", body, sig) {
		t.Fatal("expected valid signature to pass")
	}
	if ValidateSignature("topsecret", body, "forged") {
		t.Fatal("expected forged signature to fail")
	}
	if ValidateSignature("topsecret", []byte(`{"tampered":true}`), sig) {
		t.Fatal("expected tampered body to fail")
	}
	if ValidateSignature("wrong", body, sig) {
		t.Fatal("expected wrong secret to fail")
	}
}
