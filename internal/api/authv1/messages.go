package authv1

import (
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// message is implemented by every request and response type. The wire form
// is a dynamicpb message of the matching descriptor in File.
type message interface {
	descriptor() protoreflect.MessageDescriptor
	writeTo(m protoreflect.Message)
	readFrom(m protoreflect.Message)
}

func toProto(v message) *dynamicpb.Message {
	m := dynamicpb.NewMessage(v.descriptor())
	v.writeTo(m)
	return m
}

type Empty struct{}

func (*Empty) descriptor() protoreflect.MessageDescriptor { return emptyDescriptor }
func (*Empty) writeTo(protoreflect.Message)               {}
func (*Empty) readFrom(protoreflect.Message)              {}

type PingRequest struct{}

func (*PingRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("PingRequest")
}
func (*PingRequest) writeTo(protoreflect.Message)  {}
func (*PingRequest) readFrom(protoreflect.Message) {}

type PingResponse struct {
	Status string
}

func (*PingResponse) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("PingResponse")
}

func (x *PingResponse) writeTo(m protoreflect.Message) { setString(m, "status", x.Status) }

func (x *PingResponse) readFrom(m protoreflect.Message) { x.Status = getString(m, "status") }

type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

func (*RegisterRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("RegisterRequest")
}

func (x *RegisterRequest) writeTo(m protoreflect.Message) {
	setString(m, "username", x.Username)
	setString(m, "email", x.Email)
	setString(m, "password", x.Password)
}

func (x *RegisterRequest) readFrom(m protoreflect.Message) {
	x.Username = getString(m, "username")
	x.Email = getString(m, "email")
	x.Password = getString(m, "password")
}

type RegisterResponse struct {
	UserID string
}

func (*RegisterResponse) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("RegisterResponse")
}

func (x *RegisterResponse) writeTo(m protoreflect.Message) { setString(m, "user_id", x.UserID) }

func (x *RegisterResponse) readFrom(m protoreflect.Message) { x.UserID = getString(m, "user_id") }

type CheckUsernameRequest struct {
	Username string
}

func (*CheckUsernameRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("CheckUsernameRequest")
}

func (x *CheckUsernameRequest) writeTo(m protoreflect.Message) {
	setString(m, "username", x.Username)
}

func (x *CheckUsernameRequest) readFrom(m protoreflect.Message) {
	x.Username = getString(m, "username")
}

type CheckUsernameResponse struct {
	Exists bool
}

func (*CheckUsernameResponse) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("CheckUsernameResponse")
}

func (x *CheckUsernameResponse) writeTo(m protoreflect.Message) { setBool(m, "exists", x.Exists) }

func (x *CheckUsernameResponse) readFrom(m protoreflect.Message) { x.Exists = getBool(m, "exists") }

type LoginRequest struct {
	// Login is a username or a user ID.
	Login    string
	Password string
}

func (*LoginRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("LoginRequest")
}

func (x *LoginRequest) writeTo(m protoreflect.Message) {
	setString(m, "login", x.Login)
	setString(m, "password", x.Password)
}

func (x *LoginRequest) readFrom(m protoreflect.Message) {
	x.Login = getString(m, "login")
	x.Password = getString(m, "password")
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

func (*TokenPair) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("TokenPair")
}

func (x *TokenPair) writeTo(m protoreflect.Message) {
	setString(m, "access_token", x.AccessToken)
	setString(m, "refresh_token", x.RefreshToken)
	setTime(m, "access_expires_at", x.AccessExpiresAt)
	setTime(m, "refresh_expires_at", x.RefreshExpiresAt)
}

func (x *TokenPair) readFrom(m protoreflect.Message) {
	x.AccessToken = getString(m, "access_token")
	x.RefreshToken = getString(m, "refresh_token")
	x.AccessExpiresAt = getTime(m, "access_expires_at")
	x.RefreshExpiresAt = getTime(m, "refresh_expires_at")
}

type RefreshRequest struct {
	AccessToken  string
	RefreshToken string
}

func (*RefreshRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("RefreshRequest")
}

func (x *RefreshRequest) writeTo(m protoreflect.Message) {
	setString(m, "access_token", x.AccessToken)
	setString(m, "refresh_token", x.RefreshToken)
}

func (x *RefreshRequest) readFrom(m protoreflect.Message) {
	x.AccessToken = getString(m, "access_token")
	x.RefreshToken = getString(m, "refresh_token")
}

// LogoutRequest revokes RefreshToken, or every session of the caller when
// All is set.
type LogoutRequest struct {
	RefreshToken string
	All          bool
}

func (*LogoutRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("LogoutRequest")
}

func (x *LogoutRequest) writeTo(m protoreflect.Message) {
	setString(m, "refresh_token", x.RefreshToken)
	setBool(m, "all", x.All)
}

func (x *LogoutRequest) readFrom(m protoreflect.Message) {
	x.RefreshToken = getString(m, "refresh_token")
	x.All = getBool(m, "all")
}

type LogoutResponse struct {
	Revoked int64
}

func (*LogoutResponse) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("LogoutResponse")
}

func (x *LogoutResponse) writeTo(m protoreflect.Message) { setInt64(m, "revoked", x.Revoked) }

func (x *LogoutResponse) readFrom(m protoreflect.Message) { x.Revoked = getInt64(m, "revoked") }

type WhoAmIRequest struct{}

func (*WhoAmIRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("WhoAmIRequest")
}
func (*WhoAmIRequest) writeTo(protoreflect.Message)  {}
func (*WhoAmIRequest) readFrom(protoreflect.Message) {}

type WhoAmIResponse struct {
	UserID   string
	Username string
	Role     string
}

func (*WhoAmIResponse) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("WhoAmIResponse")
}

func (x *WhoAmIResponse) writeTo(m protoreflect.Message) {
	setString(m, "user_id", x.UserID)
	setString(m, "username", x.Username)
	setString(m, "role", x.Role)
}

func (x *WhoAmIResponse) readFrom(m protoreflect.Message) {
	x.UserID = getString(m, "user_id")
	x.Username = getString(m, "username")
	x.Role = getString(m, "role")
}

type ChangePasswordRequest struct {
	OldPassword string
	NewPassword string
}

func (*ChangePasswordRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("ChangePasswordRequest")
}

func (x *ChangePasswordRequest) writeTo(m protoreflect.Message) {
	setString(m, "old_password", x.OldPassword)
	setString(m, "new_password", x.NewPassword)
}

func (x *ChangePasswordRequest) readFrom(m protoreflect.Message) {
	x.OldPassword = getString(m, "old_password")
	x.NewPassword = getString(m, "new_password")
}

type AssignRoleRequest struct {
	UserID string
	Role   string
}

func (*AssignRoleRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("AssignRoleRequest")
}

func (x *AssignRoleRequest) writeTo(m protoreflect.Message) {
	setString(m, "user_id", x.UserID)
	setString(m, "role", x.Role)
}

func (x *AssignRoleRequest) readFrom(m protoreflect.Message) {
	x.UserID = getString(m, "user_id")
	x.Role = getString(m, "role")
}

type DeactivateUserRequest struct {
	UserID string
}

func (*DeactivateUserRequest) descriptor() protoreflect.MessageDescriptor {
	return messageDescriptor("DeactivateUserRequest")
}

func (x *DeactivateUserRequest) writeTo(m protoreflect.Message) { setString(m, "user_id", x.UserID) }

func (x *DeactivateUserRequest) readFrom(m protoreflect.Message) { x.UserID = getString(m, "user_id") }
