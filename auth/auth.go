// Package auth implements the authentication state machine of spec.md
// section 4.3: handshake (performed by session.Client.Connect) followed
// by start-auth, check-code, optional register, and sync. Each operation
// is a thin wrapper over session.Client.Request; errors in the chain
// return the API error payload verbatim and never advance state.
package auth

import (
	"context"

	"maxclient/session"
	"maxclient/wire"
)

const (
	opStartAuth = 17
	opCheckCode = 18
	opSync      = 19
	opRegister  = 23
)

// StartAuth begins the phone-code login flow. On success the response's
// token is stashed as the session's temp_token.
func StartAuth(ctx context.Context, c *session.Client, phone string) (wire.Response, error) {
	resp, err := c.Request(ctx, opStartAuth, wire.Map(
		wire.KV("phone", wire.String(phone)),
		wire.KV("type", wire.String("START_AUTH")),
		wire.KV("language", wire.String("ru")),
	))
	if err != nil {
		return wire.Response{}, err
	}
	if token, ok := resp.Payload.Path("token"); ok {
		if s, ok := token.AsString(); ok {
			c.SetTempToken(s)
		}
	}
	return resp, nil
}

// CheckCode submits the verification code. A REGISTER tokenType stores
// the returned token back as temp_token (the caller must still call
// SubmitRegister); any other tokenType stores it as the durable token
// (spec.md section 4.3 table).
func CheckCode(ctx context.Context, c *session.Client, code string) (wire.Response, error) {
	resp, err := c.Request(ctx, opCheckCode, wire.Map(
		wire.KV("token", wire.String(c.TempToken())),
		wire.KV("verifyCode", wire.String(code)),
		wire.KV("authTokenType", wire.String("CHECK_CODE")),
	))
	if err != nil {
		return wire.Response{}, err
	}
	token, hasToken := resp.Payload.Path("token")
	tokenStr, _ := token.AsString()
	if hasToken {
		tokenType, _ := resp.Payload.Path("tokenType")
		typeStr, _ := tokenType.AsString()
		if typeStr == "REGISTER" {
			c.SetTempToken(tokenStr)
		} else {
			c.SetToken(tokenStr)
		}
	}
	return resp, nil
}

// SubmitRegister completes registration for a new user (spec.md section
// 4.3: "CodeSubmitted (new user)").
func SubmitRegister(ctx context.Context, c *session.Client, firstName string, lastName *string) (wire.Response, error) {
	last := wire.Null()
	if lastName != nil {
		last = wire.String(*lastName)
	}
	resp, err := c.Request(ctx, opRegister, wire.Map(
		wire.KV("firstName", wire.String(firstName)),
		wire.KV("lastName", last),
		wire.KV("photoId", wire.Int(2981369)),
		wire.KV("avatarType", wire.String("PRESET_AVATAR")),
		wire.KV("tokenType", wire.String("REGISTER")),
	))
	if err != nil {
		return wire.Response{}, err
	}
	if token, ok := resp.Payload.Path("token"); ok {
		if s, ok := token.AsString(); ok {
			c.SetToken(s)
		}
	}
	return resp, nil
}

// Sync performs the authenticated bootstrap exchange. It does not set the
// session's user_id; SyncAndSetUserID does, or a caller can pass the
// response to ExtractUserID and call c.SetUserID itself.
func Sync(ctx context.Context, c *session.Client) (wire.Response, error) {
	return c.Request(ctx, opSync, wire.Map(
		wire.KV("interactive", wire.Bool(true)),
		wire.KV("token", wire.String(c.Token())),
		wire.KV("chatsSync", wire.Int(0)),
		wire.KV("contactsSync", wire.Int(0)),
		wire.KV("presenceSync", wire.Int(0)),
		wire.KV("draftsSync", wire.Int(0)),
		wire.KV("chatsCount", wire.Int(40)),
	))
}

// ExtractUserID reads profile.contact.id from a sync response (spec.md
// section 4.3: "returns a profile tree from which profile.contact.id
// becomes user_id").
func ExtractUserID(resp wire.Response) (uint64, bool) {
	id, ok := resp.Payload.Path("profile", "contact", "id")
	if !ok {
		return 0, false
	}
	n, ok := id.AsInt64()
	if !ok || n < 0 {
		return 0, false
	}
	return uint64(n), true
}

// SyncAndSetUserID runs Sync and, on success, sets the session's user_id
// from the resolved profile (spec.md section 4.3, "-> Synced").
func SyncAndSetUserID(ctx context.Context, c *session.Client) (wire.Response, error) {
	resp, err := Sync(ctx, c)
	if err != nil {
		return wire.Response{}, err
	}
	if id, ok := ExtractUserID(resp); ok {
		c.SetUserID(id)
	}
	return resp, nil
}
