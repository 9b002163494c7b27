// Package tools exposes the Hedera operations as agent-callable tools. Each
// tool takes a JSON object and returns a JSON envelope whose "status" is
// either "success" or "error"; failures never escape as Go errors.
package tools
