// Package storage provides the narrow object store interface the
// checkpoint and filter persistence layers write through: local files for
// the common case, a blob container for fleet deployments.
package storage
