package config

import "github.com/pkg/errors"

func errInvalidWorkers(n int) error {
	return errors.Errorf("invalid number of workers %d (must be 1..1000)", n)
}

func errInvalidPort(p int) error {
	return errors.Errorf("invalid port %d", p)
}
