package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"<#> Your code is 123456\nFA+9qCX9VSu", "123456", true},
		{"Code: 123-456", "123456", true},
		{"4821 is your login code", "4821", true},
		{"Use 12345678 to sign in", "12345678", true},
		{"no digits here", "", false},
		{"call 12", "", false},
	}
	for _, tt := range tests {
		got, ok := Extract(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}
