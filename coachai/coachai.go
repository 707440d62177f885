// Package coachai implements [coach.AuthService] and [coach.ChatService]
// for the CoachAI HTTP API.
//
// The client attaches the current access token as a bearer credential and
// surfaces non-success statuses as [*coach.HTTPError]. It never retries and
// never refreshes tokens on its own.
package coachai

import (
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://localhost:7073"

	signInPath  = "/auth/sign-in"
	signUpPath  = "/auth/sign-up"
	refreshPath = "/auth/token/refresh"
	chatsPath   = "/chats"

	contentType = "application/json"

	// senderUser is the only senderType the service uses for the user; every
	// other value is the assistant ("Ai").
	senderUser = "User"
)

// apiTokens is the sign-in response. The service spells the refresh token
// key "refreshTokem"; both spellings are accepted.
type apiTokens struct {
	AccessToken     string   `json:"accessToken"`
	RefreshToken    string   `json:"refreshToken"`
	RefreshTokenAlt string   `json:"refreshTokem"`
	ExpirationTime  *apiTime `json:"expirationTime"`
}

func (t apiTokens) refreshToken() string {
	if t.RefreshToken != "" {
		return t.RefreshToken
	}
	return t.RefreshTokenAlt
}

// apiRefresh is the token refresh response.
type apiRefresh struct {
	AccessToken    string   `json:"accessToken"`
	ExpirationDate *apiTime `json:"expirationDate"`
}

type apiSignUp struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type apiChat struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Technology      string   `json:"technology"`
	Grade           string   `json:"grade"`
	QuestionsAmount int      `json:"questionsAmount"`
	CreatedAt       *apiTime `json:"createdAt,omitempty"`
}

type apiMessage struct {
	Value      string   `json:"value"`
	SenderType string   `json:"senderType"`
	CreatedAt  *apiTime `json:"createdAt"`
}

// apiAnswer is both the send request body and its response.
type apiAnswer struct {
	Answer string `json:"answer"`
}

// apiTime decodes the service's timestamps, which come with or without a
// zone offset depending on the endpoint. A timestamp in no known layout
// decodes as the zero time rather than failing the whole response.
type apiTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700", // fractional seconds are accepted when parsing
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

func (t *apiTime) value() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}
