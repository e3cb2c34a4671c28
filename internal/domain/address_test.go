package domain

import (
	"strings"
	"testing"
)

func TestParseAddress_ChecksumVectors(t *testing.T) {
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, vector := range vectors {
		addr, err := ParseAddress(vector)
		if err != nil {
			t.Fatalf("parse %s: %v", vector, err)
		}
		if addr.Hex() != vector {
			t.Fatalf("expected checksum %s, got %s", vector, addr.Hex())
		}
		if _, err := ParseAddress(strings.ToLower(vector)); err != nil {
			t.Fatalf("lowercase %s rejected: %v", vector, err)
		}
		if _, err := ParseAddress("0x" + strings.ToUpper(vector[2:])); err != nil {
			t.Fatalf("uppercase %s rejected: %v", vector, err)
		}
	}
}

func TestParseAddress_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "empty", value: ""},
		{name: "prefix only", value: "0x"},
		{name: "short", value: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA"},
		{name: "long", value: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAedaa"},
		{name: "non hex", value: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeZ"},
		{name: "bad checksum", value: "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{name: "upper prefix", value: "0X5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{name: "padded", value: " 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if IsAddress(tc.value) {
				t.Fatalf("expected %q to be rejected", tc.value)
			}
		})
	}
}

func TestParseMintRequest(t *testing.T) {
	const valid = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	tests := []struct {
		name    string
		raw     RawMintRequest
		wantErr bool
	}{
		{name: "valid", raw: RawMintRequest{Address: valid, Token: "tok"}},
		{name: "missing address", raw: RawMintRequest{Token: "tok"}, wantErr: true},
		{name: "missing token", raw: RawMintRequest{Address: valid}, wantErr: true},
		{name: "malformed address", raw: RawMintRequest{Address: "0x1234", Token: "tok"}, wantErr: true},
		{name: "padded address", raw: RawMintRequest{Address: valid + "\n", Token: "tok"}, wantErr: true},
		{name: "unprefixed address", raw: RawMintRequest{Address: valid[2:], Token: "tok"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseMintRequest(tc.raw)
			if tc.wantErr {
				if err != ErrInvalidRequest {
					t.Fatalf("expected ErrInvalidRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Requester.Hex() != valid || req.ProofToken != "tok" {
				t.Fatalf("unexpected request: %+v", req)
			}
		})
	}
}
