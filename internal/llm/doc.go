// Package llm provides LLM-backed category suggestion for ledger entries.
package llm
