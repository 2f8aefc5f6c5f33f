package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"100", "100", true},
		{" 250.5 ", "250.5", true},
		{"0.00000001", "0.00000001", true},
		{"0", "", false},
		{"-10", "", false},
		{"abc", "", false},
		{"", "", false},
		{"1e3", "1000", true}, // scientific notation parses; still positive
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got.String(), "input %q", tc.in)
		}
	}
}

func TestSanitizeStruct(t *testing.T) {
	phone := "  +2348012345678 "
	req := RegisterRequest{
		Email:    "  alice@example.com  ",
		Username: `<script>alert("x")</script>`,
		Phone:    &phone,
		Password: "unchanged-password",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice@example.com", req.Email)
	assert.NotContains(t, req.Username, "<script>")
	require.NotNil(t, req.Phone)
	assert.Equal(t, "+2348012345678", *req.Phone)
	assert.Equal(t, "unchanged-password", req.Password)
}

func TestSanitizeStructIgnoresNonStructs(t *testing.T) {
	s := "  padded  "
	SanitizeStruct(&s)
	assert.Equal(t, "  padded  ", s)
	SanitizeStruct(nil)
}

func TestValidateSafeURL(t *testing.T) {
	valid := []string{"", "https://cdn.example.com/proof.png", "http://example.com/a"}
	invalid := []string{"javascript:alert(1)", "ftp://example.com/f", "not a url"}

	for _, u := range valid {
		assert.True(t, validateSafeURLString(u), "expected valid: %q", u)
	}
	for _, u := range invalid {
		assert.False(t, validateSafeURLString(u), "expected invalid: %q", u)
	}
}

func TestValidateSafeID(t *testing.T) {
	assert.True(t, safeStringRe.MatchString("TLa2f6VPqF9ZcVXfQ5nWbMYZ6fJ4mA2k9q"))
	assert.True(t, safeStringRe.MatchString("order_no-1.2"))
	assert.False(t, safeStringRe.MatchString("has space"))
	assert.False(t, safeStringRe.MatchString("semi;colon"))
	assert.False(t, safeStringRe.MatchString(""))
}
