package bio

import "github.com/Ninjaware/zeke/kcore"

// cacheOptions holds Cache construction parameters, following the
// teacher's functional-options shape (unexported struct, Option
// interface, nil-skipping resolve helper).
type cacheOptions struct {
	logger        kcore.Logger
	asyncWorkers  int64
	holdingSize   int64
}

// Option configures a Cache at construction time.
type Option interface {
	applyCache(*cacheOptions)
}

type optionFunc func(*cacheOptions)

func (f optionFunc) applyCache(o *cacheOptions) { f(o) }

// WithLogger supplies the ambient structured logger (§10.1).
func WithLogger(l kcore.Logger) Option {
	return optionFunc(func(o *cacheOptions) { o.logger = l })
}

// WithAsyncWorkers bounds the number of concurrent asynchronous writeback
// operations (the worker-pool resolution of the "how is async bwrite
// actually scheduled" open question). Default 4.
func WithAsyncWorkers(n int64) Option {
	return optionFunc(func(o *cacheOptions) { o.asyncWorkers = n })
}

// WithHoldingSize sets the default byte size new buffers are created
// with before any caller-requested resize (§4.4 "new buffers are created
// holding-size bytes"). Default 512.
func WithHoldingSize(n int64) Option {
	return optionFunc(func(o *cacheOptions) { o.holdingSize = n })
}

func resolveOptions(opts []Option) cacheOptions {
	o := cacheOptions{
		asyncWorkers: 4,
		holdingSize:  512,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyCache(&o)
		}
	}
	if o.logger == nil {
		o.logger = kcore.NewDiscardLogger()
	}
	return o
}
