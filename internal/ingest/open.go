package ingest

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"
)

// The acquisition software keeps the newest log open while appending, and on
// some hosts a concurrent open fails for a short moment.
const (
	openRetries  = 3
	openRetryGap = 200 * time.Millisecond
)

// openLog opens a log file, retrying transient failures. A missing file is
// not retried.
func openLog(path string) (*os.File, error) {
	var file *os.File
	op := func() error {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return backoff.Permanent(err)
			}
			return err
		}
		file = f
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Debug().Err(err).Str("file", path).Dur("wait", wait).Msg("Retrying log open")
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(openRetryGap), openRetries)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return file, nil
}
