package authv1

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// FileName is the registry path of api/tokenkeeper/v1/auth.proto.
const FileName = "tokenkeeper/v1/auth.proto"

// File is the descriptor of the AuthService schema. It is registered in
// protoregistry.GlobalFiles, which makes it visible to server reflection.
var File protoreflect.FileDescriptor

var emptyDescriptor = new(emptypb.Empty).ProtoReflect().Descriptor()

func init() {
	fd, err := protodesc.NewFile(fileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("authv1: build %s: %v", FileName, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("authv1: register %s: %v", FileName, err))
	}
	File = fd
}

// fileProto mirrors api/tokenkeeper/v1/auth.proto. Keep both in sync.
func fileProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(FileName),
		Package: proto.String(packageName),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			emptypb.File_google_protobuf_empty_proto.Path(),
			timestamppb.File_google_protobuf_timestamp_proto.Path(),
		},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/dmitrijs2005/tokenkeeper/internal/api/authv1;authv1"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			messageProto("PingRequest"),
			messageProto("PingResponse", stringField("status", 1)),
			messageProto("RegisterRequest",
				stringField("username", 1),
				stringField("email", 2),
				stringField("password", 3),
			),
			messageProto("RegisterResponse", stringField("user_id", 1)),
			messageProto("CheckUsernameRequest", stringField("username", 1)),
			messageProto("CheckUsernameResponse", boolField("exists", 1)),
			messageProto("LoginRequest",
				stringField("login", 1),
				stringField("password", 2),
			),
			messageProto("TokenPair",
				stringField("access_token", 1),
				stringField("refresh_token", 2),
				timestampField("access_expires_at", 3),
				timestampField("refresh_expires_at", 4),
			),
			messageProto("RefreshRequest",
				stringField("access_token", 1),
				stringField("refresh_token", 2),
			),
			messageProto("LogoutRequest",
				stringField("refresh_token", 1),
				boolField("all", 2),
			),
			messageProto("LogoutResponse", int64Field("revoked", 1)),
			messageProto("WhoAmIRequest"),
			messageProto("WhoAmIResponse",
				stringField("user_id", 1),
				stringField("username", 2),
				stringField("role", 3),
			),
			messageProto("ChangePasswordRequest",
				stringField("old_password", 1),
				stringField("new_password", 2),
			),
			messageProto("AssignRoleRequest",
				stringField("user_id", 1),
				stringField("role", 2),
			),
			messageProto("DeactivateUserRequest", stringField("user_id", 1)),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String(serviceShortName),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("Ping", "PingRequest", "PingResponse"),
				method("Register", "RegisterRequest", "RegisterResponse"),
				method("CheckUsername", "CheckUsernameRequest", "CheckUsernameResponse"),
				method("Login", "LoginRequest", "TokenPair"),
				method("Refresh", "RefreshRequest", "TokenPair"),
				method("Logout", "LogoutRequest", "LogoutResponse"),
				method("WhoAmI", "WhoAmIRequest", "WhoAmIResponse"),
				method("ChangePassword", "ChangePasswordRequest", ""),
				method("AssignRole", "AssignRoleRequest", ""),
				method("DeactivateUser", "DeactivateUserRequest", ""),
			},
		}},
	}
}

func messageProto(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func field(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func stringField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_STRING)
}

func boolField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_BOOL)
}

func int64Field(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_INT64)
}

func timestampField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	f := field(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String(".google.protobuf.Timestamp")
	return f
}

// method takes local message names. An empty output means google.protobuf.Empty.
func method(name, in, out string) *descriptorpb.MethodDescriptorProto {
	output := "." + string(emptyDescriptor.FullName())
	if out != "" {
		output = "." + packageName + "." + out
	}
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String("." + packageName + "." + in),
		OutputType: proto.String(output),
	}
}

func messageDescriptor(name protoreflect.Name) protoreflect.MessageDescriptor {
	return File.Messages().ByName(name)
}

func fieldOf(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("authv1: %s has no field %s", m.Descriptor().FullName(), name))
	}
	return fd
}

// Zero values are left unset, as proto3 does for implicit presence.

func setString(m protoreflect.Message, name protoreflect.Name, v string) {
	if v != "" {
		m.Set(fieldOf(m, name), protoreflect.ValueOfString(v))
	}
}

func getString(m protoreflect.Message, name protoreflect.Name) string {
	return m.Get(fieldOf(m, name)).String()
}

func setBool(m protoreflect.Message, name protoreflect.Name, v bool) {
	if v {
		m.Set(fieldOf(m, name), protoreflect.ValueOfBool(v))
	}
}

func getBool(m protoreflect.Message, name protoreflect.Name) bool {
	return m.Get(fieldOf(m, name)).Bool()
}

func setInt64(m protoreflect.Message, name protoreflect.Name, v int64) {
	if v != 0 {
		m.Set(fieldOf(m, name), protoreflect.ValueOfInt64(v))
	}
}

func getInt64(m protoreflect.Message, name protoreflect.Name) int64 {
	return m.Get(fieldOf(m, name)).Int()
}

func setTime(m protoreflect.Message, name protoreflect.Name, t time.Time) {
	if t.IsZero() {
		return
	}
	ts := m.Mutable(fieldOf(m, name)).Message()
	ts.Set(fieldOf(ts, "seconds"), protoreflect.ValueOfInt64(t.Unix()))
	ts.Set(fieldOf(ts, "nanos"), protoreflect.ValueOfInt32(int32(t.Nanosecond())))
}

func getTime(m protoreflect.Message, name protoreflect.Name) time.Time {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return time.Time{}
	}
	ts := m.Get(fd).Message()
	return time.Unix(getInt64(ts, "seconds"), ts.Get(fieldOf(ts, "nanos")).Int()).UTC()
}
