// Package version reports the chunkscribe build. Values are injected at
// link time:
//
//	go build -ldflags "-X github.com/kbukum/chunkscribe/version.Version=1.4.0 \
//	    -X github.com/kbukum/chunkscribe/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unset values fall back to the VCS stamp the Go toolchain embeds.
package version
