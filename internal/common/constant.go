package common

// AuthorizationHeaderName carries the bearer token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authorization scheme prefix expected in
// AuthorizationHeaderName.
const BearerScheme = "Bearer"

// EncryptionKeyField is the form/JSON field carrying the caller-supplied
// file encryption key on upload and download.
const EncryptionKeyField = "encryption_key"
