package demux

import "errors"

// RetryWithData runs op until it stops asking for more data, calling feed
// between attempts. feed should append to the push source, closing it when
// the input is exhausted so that op can finish with a definite result.
func RetryWithData(op func() error, feed func() error) error {
	for {
		err := op()
		if !errors.Is(err, ErrNeedMoreData) {
			return err
		}
		if ferr := feed(); ferr != nil {
			return ferr
		}
	}
}
