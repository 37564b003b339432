// Package ledger records every run, source and segment outcome in the
// SQLite database so reruns can skip sources that were already transcribed
// and operators can see which segment of a failed source went wrong.
//
// Sources are identified by a blake3 fingerprint of their bytes, so a
// renamed file is still recognized and an edited file is not.
package ledger
