package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"international", "6281234567890", false},
		{"with plus", "+6281234567890", false},
		{"empty", "   ", true},
		{"leading zero", "081234567890", true},
		{"letters", "62812abc", true},
		{"too short", "12345", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhone(tt.phone)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "628123", NormalizePhone(" +628123 "))
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://picsum.photos/600/400"))
	assert.Error(t, ValidateURL(""))
	assert.Error(t, ValidateURL("not a url"))
	assert.Error(t, ValidateURL("ftp://example.com/file"))
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		allowPrivate bool
		wantErr      bool
	}{
		{"public https", "https://hooks.example.com/bot", false, false},
		{"public 172 outside private range", "https://172.32.0.1/hook", false, false},
		{"plain http", "http://hooks.example.com/bot", false, true},
		{"localhost", "https://localhost:8080/hook", false, true},
		{"loopback", "https://127.0.0.1/hook", false, true},
		{"unspecified", "https://0.0.0.0/hook", false, true},
		{"private 10", "https://10.1.2.3/hook", false, true},
		{"private 172.16/12", "https://172.20.0.5/hook", false, true},
		{"private 192.168", "https://192.168.1.10/hook", false, true},
		{"link local", "https://169.254.169.254/latest", false, true},
		{"private ipv6", "https://[fd00::1]/hook", false, true},
		{"private allowed", "http://192.168.1.10/hook", true, false},
		{"invalid even when private allowed", "not a url", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWebhookURL(tt.url, tt.allowPrivate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
