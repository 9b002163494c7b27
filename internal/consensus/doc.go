// Package consensus adapts the ledger's topic transactions and the mirror
// node read path into one service used by the agent tools.
package consensus
