// Package ledger houses Hedera connectivity abstractions: entity identifiers,
// network selection, the Client interface implemented by the SDK-backed
// client in ledger/hedera, and the YAML network catalogue that maps network
// names to mirror node and JSON-RPC relay endpoints.
package ledger
