package finalize

import (
	"errors"

	"github.com/longbridgeapp/opencc"
)

var errNoConverter = errors.New("no script converter configured")

// OpenCC builds a converter from one of the built-in OpenCC configurations.
func OpenCC(config string) (Converter, error) {
	return opencc.New(config)
}
