// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse(strings.NewReader(`{"ok":true}`))
	if err != nil {
		t.Fatalf("ReadResponse failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", data)
	}
}

func TestDecodeResponse(t *testing.T) {
	var decoded struct {
		Name string `json:"name"`
	}
	if err := DecodeResponse(strings.NewReader(`{"name":"maru"}`), &decoded); err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if decoded.Name != "maru" {
		t.Errorf("Name = %q", decoded.Name)
	}

	if err := DecodeResponse(strings.NewReader("not json"), &decoded); err == nil {
		t.Error("DecodeResponse of invalid JSON unexpectedly succeeded")
	}
}

func TestReadObjectBound(t *testing.T) {
	small := bytes.Repeat([]byte{0xAB}, 1024)
	data, err := ReadObject(bytes.NewReader(small))
	if err != nil {
		t.Fatalf("ReadObject failed: %v", err)
	}
	if !bytes.Equal(data, small) {
		t.Error("ReadObject altered content")
	}
}
