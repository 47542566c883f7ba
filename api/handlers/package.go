// Package handlers contains the HTTP request handlers of the dashboard API,
// organised by resource. Handlers validate input, call the store or a service,
// and write the response envelope or a problem document.
package handlers
