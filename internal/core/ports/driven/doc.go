// Package driven defines the outbound ports of the sync pipeline:
// contracts for the content source, embedding service, relational and
// vector stores, and the pipeline stages themselves. Adapters implement
// these interfaces; core services depend only on them.
package driven
