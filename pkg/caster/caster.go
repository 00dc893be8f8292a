// Package caster converts values to and from their wire form.
package caster

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type Caster[T any] interface {
	From(data []byte) (T, error)
	To(v T) ([]byte, error)
}

// JSON casts T through encoding/json.
type JSON[T any] struct{}

func (JSON[T]) From(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Wrapf(err, "decode %T", v)
	}
	return v, nil
}

func (JSON[T]) To(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %T", v)
	}
	return data, nil
}
