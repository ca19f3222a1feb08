// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package retryhint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ReisolRius/MoRius-sub003/internal/retryhint"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    int
		wantOK  bool
	}{
		{
			name:    "plain wait sentence",
			message: "please wait 45 seconds",
			want:    45,
			wantOK:  true,
		},
		{
			name:    "singular second",
			message: "try again in 1 second",
			want:    1,
			wantOK:  true,
		},
		{
			name:    "mixed case wording",
			message: "Please Wait 30 Seconds before requesting another code",
			want:    30,
			wantOK:  true,
		},
		{
			name:    "hint at start of message",
			message: "60 seconds remaining before you can resend",
			want:    60,
			wantOK:  true,
		},
		{
			name:    "no whitespace before token",
			message: "rate limited: retry in 15seconds",
			want:    15,
			wantOK:  true,
		},
		{
			name:    "negative value rejected",
			message: "please wait -3 seconds",
			wantOK:  false,
		},
		{
			name:    "zero rejected",
			message: "please wait 0 seconds",
			wantOK:  false,
		},
		{
			name:    "no hint at all",
			message: "error occurred",
			wantOK:  false,
		},
		{
			name:    "number without seconds token",
			message: "error code 429",
			wantOK:  false,
		},
		{
			name:    "seconds token without number",
			message: "wait a few seconds",
			wantOK:  false,
		},
		{
			name:    "token is a prefix of another word",
			message: "wait 5 secondsish",
			wantOK:  false,
		},
		{
			name:    "capture too large to parse",
			message: "wait 99999999999999999999999999 seconds",
			wantOK:  false,
		},
		{
			name:    "empty message",
			message: "",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := retryhint.Extract(tt.message)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Zero(t, got)
			}
		})
	}
}
