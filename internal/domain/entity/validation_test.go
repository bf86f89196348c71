package entity

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://res.cloudinary.com/jules/image/upload/outfit.jpg", false},
		{"https://93.184.216.34/pic.png", false},
		{"http://res.cloudinary.com/outfit.jpg", true},
		{"ftp://example.com/a.jpg", true},
		{"https:///no-host", true},
		{"https://localhost/a.jpg", true},
		{"https://127.0.0.1/a.jpg", true},
		{"https://10.1.2.3/a.jpg", true},
		{"https://192.168.0.10/a.jpg", true},
		{"https://169.254.169.254/latest/meta-data", true},
		{"https://[::1]/a.jpg", true},
		{"https://[::ffff:10.0.0.1]/a.jpg", true},
		{"https://example.com/" + strings.Repeat("a", 2048), true},
	}
	for _, tt := range tests {
		err := ValidateImageURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateImageURL(%.60q) err = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		var ve *ValidationError
		if err != nil && (!errors.As(err, &ve) || ve.Field != "imageUrl") {
			t.Errorf("want imageUrl ValidationError, got %v", err)
		}
	}
}
