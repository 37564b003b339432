// Package storage is the sink for exported transcript metadata documents.
//
// It defines a small object-store interface and a factory keyed by provider
// name. Only the local filesystem backend ships with chunkscribe:
//
//	export:
//	  enabled: true
//	  provider: local
//	  base_path: ./out/metadata
//
// Backends register themselves from an init function, so the binary must
// import them for side effects:
//
//	import _ "github.com/kbukum/chunkscribe/storage/local"
package storage
