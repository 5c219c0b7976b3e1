package cloudbalance

import (
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const credentialsSchema = `{
	"type": "object",
	"required": ["username", "password"],
	"properties": {
		"username": {"type": "string", "minLength": 1, "pattern": "\\S"},
		"password": {"type": "string", "minLength": 1}
	}
}`

const forgotPasswordSchema = `{
	"type": "object",
	"required": ["email"],
	"properties": {
		"email": {"type": "string", "format": "email"}
	}
}`

const resetPasswordSchema = `{
	"type": "object",
	"required": ["token", "newPassword"],
	"properties": {
		"token": {"type": "string", "minLength": 1},
		"newPassword": {"type": "string", "minLength": 6}
	}
}`

const impersonateSchema = `{
	"type": "object",
	"required": ["targetUserId"],
	"properties": {
		"targetUserId": {"type": "integer", "minimum": 1}
	}
}`

const userCreateSchema = `{
	"type": "object",
	"required": ["username", "password", "firstName", "lastName", "email", "roleName"],
	"properties": {
		"username": {"type": "string", "minLength": 3, "maxLength": 50},
		"password": {"type": "string", "minLength": 6},
		"firstName": {"type": "string", "minLength": 1, "maxLength": 100},
		"lastName": {"type": "string", "minLength": 1, "maxLength": 100},
		"email": {"type": "string", "format": "email", "maxLength": 100},
		"roleName": {"enum": ["ROLE_ADMIN", "ROLE_READ_ONLY", "ROLE_CUSTOMER"]},
		"accountIds": {"type": "array", "items": {"type": "integer", "minimum": 1}}
	}
}`

const userUpdateSchema = `{
	"type": "object",
	"properties": {
		"username": {"type": "string", "minLength": 3, "maxLength": 50},
		"password": {"type": "string", "minLength": 6},
		"firstName": {"type": "string", "maxLength": 100},
		"lastName": {"type": "string", "maxLength": 100},
		"email": {"type": "string", "format": "email", "maxLength": 100},
		"roleName": {"enum": ["ROLE_ADMIN", "ROLE_READ_ONLY", "ROLE_CUSTOMER"]},
		"accountIds": {"type": "array", "items": {"type": "integer", "minimum": 1}}
	}
}`

const cloudAccountCreateSchema = `{
	"type": "object",
	"required": ["accountId", "accountName", "provider", "region"],
	"properties": {
		"accountId": {"type": "string", "pattern": "^[0-9]{12}$"},
		"accountName": {"type": "string", "minLength": 1},
		"provider": {"type": "string", "minLength": 1},
		"region": {"type": "string", "minLength": 1},
		"arn": {"type": "string", "pattern": "^arn:"}
	}
}`

const accountIDsSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {"type": "integer", "minimum": 1}
}`

// Schemas are exported as loaders so that the mock API server validates
// request bodies exactly as the SDK does.
var (
	CredentialsSchema        = gojsonschema.NewStringLoader(credentialsSchema)
	ForgotPasswordSchema     = gojsonschema.NewStringLoader(forgotPasswordSchema)
	ResetPasswordSchema      = gojsonschema.NewStringLoader(resetPasswordSchema)
	ImpersonateSchema        = gojsonschema.NewStringLoader(impersonateSchema)
	UserCreateSchema         = gojsonschema.NewStringLoader(userCreateSchema)
	UserUpdateSchema         = gojsonschema.NewStringLoader(userUpdateSchema)
	CloudAccountCreateSchema = gojsonschema.NewStringLoader(cloudAccountCreateSchema)
	AccountIDsSchema         = gojsonschema.NewStringLoader(accountIDsSchema)
)

// validate checks obj against the schema and returns an *ErrValidation
// listing every violation.
func validate(
	schemaLoader gojsonschema.JSONLoader,
	obj interface{},
	reason string,
) error {
	result, err := gojsonschema.Validate(
		schemaLoader,
		gojsonschema.NewGoLoader(obj),
	)
	if err != nil {
		return errors.Wrap(err, "error validating request body")
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, len(result.Errors()))
	for i, verr := range result.Errors() {
		details[i] = verr.String()
	}
	return NewErrValidation(reason, details...)
}
