// Package mirror reads topic messages from the Hedera mirror node REST API,
// following links.next pagination.
package mirror
