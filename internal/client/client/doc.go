// Package client is the Go SDK for the SecureCloud HTTP API.
//
// HTTPClient performs the calls; a Session returned by Login carries the
// bearer token and is passed explicitly to every authenticated call, so a
// process can hold several sessions or none. Uploads stream from an
// io.Reader through a multipart body without buffering the file.
//
// Server errors are returned as *APIError and match the package sentinels
// with errors.Is; transport failures match ErrUnavailable.
package client
