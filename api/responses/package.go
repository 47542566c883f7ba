// Package responses provides the JSON envelope for successful API responses and
// RFC 7807 problem details for failures.
package responses
