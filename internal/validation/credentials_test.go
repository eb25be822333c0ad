package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "valid email", email: "admin@pizzeria.dev", wantErr: false},
		{name: "valid email with plus", email: "admin+ops@pizzeria.dev", wantErr: false},
		{name: "empty email", email: "", wantErr: true},
		{name: "missing at", email: "admin.pizzeria.dev", wantErr: true},
		{name: "missing domain", email: "admin@", wantErr: true},
		{name: "missing tld", email: "admin@pizzeria", wantErr: true},
		{name: "contains space", email: "admin @pizzeria.dev", wantErr: true},
		{name: "too long", email: strings.Repeat("a", MaxEmailLen) + "@x.io", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid password", password: "correct-horse", wantErr: false},
		{name: "exactly min length", password: strings.Repeat("x", MinPasswordLen), wantErr: false},
		{name: "empty password", password: "", wantErr: true},
		{name: "too short", password: "short", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOTP(t *testing.T) {
	tests := []struct {
		name    string
		otp     string
		wantErr bool
	}{
		{name: "valid otp", otp: "123456", wantErr: false},
		{name: "empty otp", otp: "", wantErr: true},
		{name: "too short", otp: "12345", wantErr: true},
		{name: "too long", otp: "1234567", wantErr: true},
		{name: "non-digits", otp: "12a456", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOTP(tt.otp)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Store Admin"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName(strings.Repeat("n", MaxNameLen+1)))
}
