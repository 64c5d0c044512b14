package model

import "testing"

func TestDecodeInlineData(t *testing.T) {
	data, contentType, err := DecodeInlineData("data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if string(data) != "hello" || contentType != "image/png" {
		t.Errorf("unexpected decode: data=%q type=%q", data, contentType)
	}
}

func TestDecodeInlineData_Rejects(t *testing.T) {
	cases := []string{
		"https://cdn.example/a.jpg", // not inline
		"data:image/png;base64",     // no payload separator
		"data:image/png;base64,!!",  // not base64
	}
	for _, ref := range cases {
		if _, _, err := DecodeInlineData(ref); err == nil {
			t.Errorf("expected an error for %q", ref)
		}
	}
}

func TestIsInlineData(t *testing.T) {
	if !IsInlineData("data:image/jpeg;base64,AAAA") {
		t.Error("expected data: URLs detected as inline")
	}
	if IsInlineData("https://cdn.example/a.jpg") {
		t.Error("expected https URLs treated as durable references")
	}
}
