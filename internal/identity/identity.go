// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

// Package identity provides the types and HTTP client for the MoRius
// account service.
package identity

import "time"

// TokenTypeBearer is the token type the account service issues.
const TokenTypeBearer = "bearer"

// UserProfile is the account record the service returns alongside a token.
type UserProfile struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	AvatarScale  float64    `json:"avatar_scale,omitempty"`
	Provider     string     `json:"provider,omitempty"`
	Role         string     `json:"role,omitempty"`
	Level        int        `json:"level"`
	Coins        int64      `json:"coins"`
	Banned       bool       `json:"banned"`
	BanExpiresAt *time.Time `json:"ban_expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AuthResult is what a completed login or verification yields.
type AuthResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        UserProfile `json:"user"`
}

// RegisterAck acknowledges a registration request. The account is not
// usable until the emailed verification code is confirmed.
type RegisterAck struct {
	Message string `json:"message,omitempty"`
}
