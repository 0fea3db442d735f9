package mailer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverrideNotice(t *testing.T) {
	expires := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		enabled     bool
		expiresAt   *time.Time
		wantSubject string
		wantBody    []string
	}{
		{"granted until", true, &expires, "Video <Email> has been enabled for your account", []string{"now have access to", "Video &lt;Email&gt;", "June 1, 2025 09:30 UTC"}},
		{"revoked", false, nil, "Video <Email> has been disabled for your account", []string{"no longer have access to"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := OverrideNotice("Video <Email>", tt.enabled, tt.expiresAt, "https://app.example.com")
			assert.Equal(t, tt.wantSubject, subject)
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			assert.Contains(t, body, "https://app.example.com")
		})
	}
}

func TestNewEmailService_WithoutHostIsNop(t *testing.T) {
	svc := NewEmailService("", 587, "", "", "CRM", "")
	assert.IsType(t, NopEmailService{}, svc)
	assert.NoError(t, svc.SendOverrideNotice("a@b.c", "x", true, nil))
	assert.NoError(t, svc.SendAccessChanged("a@b.c", "wl_user", ""))
}
